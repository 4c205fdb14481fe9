// Package engine содержит построитель определений workflow.
//
// Включает:
//   - builder.go  — валидация WorkflowSpec и построение Workflow
//   - chain.go    — индекс цепочки шагов, поиск корня и обход
//   - template.go — подстановка плейсхолдеров {{key}}
//
// Engine отвечает за структуру workflow: порядок шагов, ссылки
// между ними и корректность конфигураций проверок. Исполнение
// процессов находится в пакете process.
package engine
