// Package validation выполняет пользовательские проверки шагов.
//
// Включает:
//   - strategy.go   — интерфейс Strategy, контекст и результат проверки
//   - registry.go   — реестр стратегий по типу проверки
//   - api.go        — проверка через внешний HTTP API
//   - database.go   — проверка SQL-запросом к именованной БД
//   - expression.go — проверка булевым выражением (expr)
//   - dispatcher.go — запуск проверок шага и журналирование результатов
//
// Проверки запускаются только для действий Approve и Submit.
// Решение о продвижении процесса принимает пакет process.
package validation
