package process

import "sync"

// Locker — мьютексы по ID процесса.
//
// Неиспользуемые мьютексы удаляются, поэтому память не растёт
// с числом процессов.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker создаёт новый Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyedLock)}
}

// Lock захватывает мьютекс процесса и возвращает функцию освобождения.
func (l *Locker) Lock(id int64) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[id]
	if !ok {
		kl = &keyedLock{}
		l.locks[id] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// Len возвращает количество удерживаемых или ожидаемых мьютексов.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
