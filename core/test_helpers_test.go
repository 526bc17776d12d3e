package core

import (
	"context"
	"sync"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// stubStorage wraps a MemoryStorage and can inject failures per method.
type stubStorage struct {
	mu            sync.Mutex
	base          *MemoryStorage
	initErr       error
	containsErr   error
	upsertErr     error
	deleteErr     error
	initCalls     int
	containsCalls int
	upsertCalls   int
	deleteCalls   int
}

func newStubStorage() *stubStorage {
	return &stubStorage{base: NewMemoryStorage()}
}

func (s *stubStorage) Init(ctx context.Context) error {
	s.mu.Lock()
	s.initCalls++
	err := s.initErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.base.Init(ctx)
}

func (s *stubStorage) Contains(ctx context.Context, peerID string) (bool, error) {
	s.mu.Lock()
	s.containsCalls++
	err := s.containsErr
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	return s.base.Contains(ctx, peerID)
}

func (s *stubStorage) Upsert(ctx context.Context, peerID string, isRegistered bool) error {
	s.mu.Lock()
	s.upsertCalls++
	err := s.upsertErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.base.Upsert(ctx, peerID, isRegistered)
}

func (s *stubStorage) Delete(ctx context.Context, peerID string) error {
	s.mu.Lock()
	s.deleteCalls++
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.base.Delete(ctx, peerID)
}

func (s *stubStorage) calls() (contains int, upsert int, del int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsCalls, s.upsertCalls, s.deleteCalls
}

func access(caller string, owner string) AccessContext {
	return AccessContext{CallerID: caller, OwnerID: owner}
}

func call(caller string, owner string) StaticCallContext {
	return StaticCallContext{Caller: caller, Owner: owner}
}
