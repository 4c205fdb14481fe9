// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (сервисы, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (recovery, metrics, logging, identity)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - workflow_handler.go — обработчики для /workflows
//   - process_handler.go  — обработчики для /processes
//
// Пользователь и роль приходят в заголовках X-User-ID и X-Role-ID.
// Ошибки сервисов переводятся в HTTP-статусы по process.Kind:
//
//	definition    → 400 INVALID_DEFINITION
//	not_found     → 404 NOT_FOUND
//	authorization → 403 FORBIDDEN
//	input         → 400 BAD_REQUEST
//	validation    → 422 VALIDATION_FAILED
//	conflict      → 409 CONFLICT
//	internal      → 500 INTERNAL_ERROR (текст ошибки только в логе)
package api
