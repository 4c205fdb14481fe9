// Package process реализует машину состояний процессов согласования.
//
// Жизненный цикл процесса:
//
//	Start → ACTIVE → ExecuteStep(Approve|Submit) → следующий шаг ... → COMPLETED
//	              ↘ ExecuteStep(Reject) → REJECTED
//
// Каждый принятый вызов ExecuteStep записывает ProcessExecution до
// запуска проверок. Переходы одного процесса сериализуются Locker'ом
// и проверкой версии строки при сохранении.
package process
