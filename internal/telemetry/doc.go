// Package telemetry — логирование и метрики сервисов Tracker.
//
// Логгер настраивается из config (log_level, log_format) и передаётся
// компонентам явно; обработчики HTTP берут его из контекста запроса
// через FromContext. Метрики регистрируются в реестре Prometheus
// по умолчанию и отдаются на /metrics каждого сервиса.
package telemetry
