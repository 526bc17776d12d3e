package peers

import "github.com/goliatone/go-peers/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Storage = core.Storage
type CallContext = core.CallContext
type StaticCallContext = core.StaticCallContext
type AccessContext = core.AccessContext
type ProvenanceTuple = core.ProvenanceTuple
type RegistrationStatus = core.RegistrationStatus
type RegistrationRecord = core.RegistrationRecord

type Result = core.Result
type StatusResult = core.StatusResult
type ErrorCode = core.ErrorCode

const (
	CodeSuccess         = core.CodeSuccess
	CodeStorageFailure  = core.CodeStorageFailure
	CodeCorruptedRecord = core.CodeCorruptedRecord
	CodeInternal        = core.CodeInternal
	CodeInvalidArgument = core.CodeInvalidArgument
	CodeUnauthorized    = core.CodeUnauthorized
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithStorage           = core.WithStorage
	WithCacheService      = core.WithCacheService
	WithVerifier          = core.WithVerifier

	ContextWithCall = core.ContextWithCall
	ClassifyError   = core.ClassifyError
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
