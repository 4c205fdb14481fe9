// Package workflow создаёт и читает определения workflow.
//
// Service.Create строит workflow через engine.BuildWorkflow и сохраняет
// его целиком (шаги, связи, проверки). Некорректное определение
// отклоняется до обращения к хранилищу.
package workflow
