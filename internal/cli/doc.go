// Package cli — команды утилиты tracker поверх HTTP API.
//
// Пакет не импортирует внутренние пакеты сервиса: Client говорит с API
// по HTTP и декодирует конверты {"data"}, {"data","total"} и {"error"}.
// Действующий пользователь и его роль уходят в заголовках X-User-ID
// и X-Role-ID.
//
// Команды по ресурсам:
//   - workflow: create, show
//   - process: list, start, show, execute, history
//
// Фабрики (NewWorkflowCmd, NewProcessCmd) получают clientFn и outputFn,
// чтобы Client и Output создавались после разбора флагов корневой команды.
// Output пишет данные в stdout, а сообщения в stderr:
//
//	tracker --json process list --status ACTIVE | jq '.[].id'
package cli
