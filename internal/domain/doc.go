// Package domain содержит модель данных системы согласований.
//
// Основные сущности:
//   - Workflow, WorkflowStep, CustomValidation — определение процесса
//   - Process — запущенный экземпляр workflow
//   - ProcessExecution — журнал действий пользователей
//   - ValidationLog — журнал результатов проверок
//
// Пакет не зависит от хранилища и транспорта.
package domain
