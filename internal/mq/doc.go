// Package mq публикует события процессов в RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий процессов
//   - consumer.go   — потребление событий (tracker-notifier)
//
// Типы сообщений:
//   - process.started   — процесс запущен
//   - process.advanced  — процесс перешёл на следующий шаг
//   - process.completed — пройден терминальный шаг
//   - process.rejected  — процесс отклонён
//
// Exchanges:
//   - tracker.processes — события процессов (topic)
//   - tracker.dlq       — dead letter queue
package mq
