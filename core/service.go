package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	cacheService      repositorycache.CacheService
	storage           Storage
	registry          *Registry
	verifier          *ProvenanceVerifier
	backend           string
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	CacheService      repositorycache.CacheService
	Storage           Storage
	Registry          *Registry
	Verifier          *ProvenanceVerifier
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("peers", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("peers"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.verifier == nil {
		builder.verifier = NewProvenanceVerifier()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.storage == nil && builder.repositoryFactory != nil {
		if storageFactory, ok := builder.repositoryFactory.(RepositoryStorageFactory); ok {
			storageProvider, buildErr := storageFactory.BuildStorage(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storageProvider != nil {
				builder.storage = storageProvider.Storage()
			}
		} else if storageProvider, ok := builder.repositoryFactory.(StorageProvider); ok {
			builder.storage = storageProvider.Storage()
		}
	}
	if builder.storage == nil {
		driver := strings.ToLower(strings.TrimSpace(finalConfig.Storage.Driver))
		if driver != "" && driver != StorageDriverMemory {
			return nil, mapBuildError(builder.errorMapper,
				fmt.Errorf("core: storage driver %q requires an injected storage", finalConfig.Storage.Driver))
		}
		builder.storage = NewMemoryStorage()
	}
	backend := storageBackendName(builder.storage)

	if builder.cacheService == nil && finalConfig.Cache.Enabled {
		cacheService, cacheErr := NewDefaultCacheService(finalConfig.Cache)
		if cacheErr != nil {
			return nil, mapBuildError(builder.errorMapper, cacheErr)
		}
		builder.cacheService = cacheService
	}
	if builder.cacheService != nil {
		if _, already := builder.storage.(*CachedStorage); !already {
			cached, cacheErr := NewCachedStorage(builder.storage, builder.cacheService)
			if cacheErr != nil {
				return nil, mapBuildError(builder.errorMapper, cacheErr)
			}
			builder.storage = cached
		}
	}

	registry, err := NewRegistry(builder.storage)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		cacheService:      builder.cacheService,
		storage:           builder.storage,
		registry:          registry,
		verifier:          builder.verifier,
		backend:           backend,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		CacheService:      s.cacheService,
		Storage:           s.storage,
		Registry:          s.registry,
		Verifier:          s.verifier,
	}
}

// Init prepares the storage backend. Calling it again is harmless.
func (s *Service) Init(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	fields := s.baseFields()
	defer func() {
		s.observeOperation(ctx, startedAt, "init", err, fields)
	}()

	if s == nil || s.registry == nil {
		err = s.mapError(internalError("core: service is not configured"))
		return err
	}
	if err = s.registry.Init(ctx); err != nil {
		err = s.mapError(err)
		s.logError(ctx, "storage initialization failed", map[string]any{"backend": s.backend, "error": err.Error()})
		return err
	}
	s.logInfo(ctx, "storage initialized", map[string]any{"backend": s.backend})
	return nil
}

func (s *Service) Status(ctx context.Context, call CallContext) (status RegistrationStatus, err error) {
	startedAt := time.Now().UTC()
	access := AccessFromCall(call)
	fields := s.baseFields()
	fields["caller_id"] = access.CallerID
	defer func() {
		fields["is_registered"] = status.IsRegistered
		s.observeOperation(ctx, startedAt, "get_status", err, fields)
	}()

	if s == nil || s.registry == nil {
		err = s.mapError(internalError("core: service is not configured"))
		return RegistrationStatus{}, err
	}
	status, err = s.registry.Status(ctx, access)
	if err != nil {
		err = s.mapError(err)
		return RegistrationStatus{}, err
	}
	return status, nil
}

func (s *Service) RegisterPeer(ctx context.Context, call CallContext, targetPeerID string) (err error) {
	return s.mutate(ctx, call, targetPeerID, operationRegister)
}

func (s *Service) RemovePeer(ctx context.Context, call CallContext, targetPeerID string) (err error) {
	return s.mutate(ctx, call, targetPeerID, operationRemove)
}

func (s *Service) mutate(ctx context.Context, call CallContext, targetPeerID string, operation string) (err error) {
	startedAt := time.Now().UTC()
	access := AccessFromCall(call)
	fields := s.baseFields()
	fields["caller_id"] = access.CallerID
	fields["target_peer_id"] = targetPeerID
	defer func() {
		s.observeOperation(ctx, startedAt, operation, err, fields)
	}()

	if s == nil || s.registry == nil {
		err = s.mapError(internalError("core: service is not configured"))
		return err
	}
	switch operation {
	case operationRemove:
		err = s.registry.Remove(ctx, access, targetPeerID)
	default:
		err = s.registry.Register(ctx, access, targetPeerID)
	}
	if err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) ListRegistered(ctx context.Context) (records []RegistrationRecord, err error) {
	startedAt := time.Now().UTC()
	fields := s.baseFields()
	defer func() {
		fields["count"] = len(records)
		s.observeOperation(ctx, startedAt, "list", err, fields)
	}()

	if s == nil || s.registry == nil {
		err = s.mapError(internalError("core: service is not configured"))
		return nil, err
	}
	records, err = s.registry.List(ctx)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return records, nil
}

func (s *Service) GetStatus(ctx context.Context, call CallContext) StatusResult {
	status, err := s.Status(ctx, call)
	if err != nil {
		code, message := resultFromError(err)
		return StatusResult{RetCode: code, ErrMsg: message}
	}
	return StatusResult{RetCode: CodeSuccess, Status: status}
}

func (s *Service) Register(ctx context.Context, call CallContext, targetPeerID string) Result {
	code, message := resultFromError(s.RegisterPeer(ctx, call, targetPeerID))
	return Result{RetCode: code, ErrMsg: message}
}

func (s *Service) Remove(ctx context.Context, call CallContext, targetPeerID string) Result {
	code, message := resultFromError(s.RemovePeer(ctx, call, targetPeerID))
	return Result{RetCode: code, ErrMsg: message}
}

// SetExpectedCaller pins the provenance tuple later calls are checked against.
// Any caller may pin; the latest pin wins.
func (s *Service) SetExpectedCaller(ctx context.Context, tuple ProvenanceTuple) {
	startedAt := time.Now().UTC()
	fields := s.baseFields()
	for key, value := range tuple.Map() {
		fields[key] = value
	}
	if s == nil || s.verifier == nil {
		return
	}
	s.verifier.Pin(tuple)
	s.observeOperation(ctx, startedAt, "pin_provenance", nil, fields)
}

// IsAuthorized reports whether the call's first argument origin matches the
// pinned tuple. Calls without provenance are never authorized.
func (s *Service) IsAuthorized(ctx context.Context, call CallContext) (authorized bool) {
	startedAt := time.Now().UTC()
	fields := s.baseFields()
	defer func() {
		fields["authorized"] = authorized
		s.observeOperation(ctx, startedAt, "verify_provenance", nil, fields)
	}()

	if s == nil || s.verifier == nil || call == nil {
		return false
	}
	observed, ok := call.Provenance()
	if !ok {
		fields["provenance"] = "missing"
		return false
	}
	for key, value := range observed.Map() {
		fields[key] = value
	}
	return s.verifier.Verify(observed)
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) baseFields() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return map[string]any{"backend": s.backend}
}

func resultFromError(err error) (ErrorCode, string) {
	if err == nil {
		return CodeSuccess, ""
	}
	return ClassifyError(err), err.Error()
}

func storageBackendName(storage Storage) string {
	if named, ok := storage.(interface{ Backend() string }); ok {
		if name := strings.TrimSpace(named.Backend()); name != "" {
			return name
		}
	}
	switch storage.(type) {
	case *MemoryStorage:
		return StorageDriverMemory
	case *CachedStorage:
		return "cached"
	}
	return fmt.Sprintf("%T", storage)
}
