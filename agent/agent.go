// Package agent assembles and runs one hrflow node: storage, audit trail,
// allow-list cache, compiler, execution service and the http server.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hrflow/hrflow/allowlist"
	"github.com/hrflow/hrflow/audit"
	"github.com/hrflow/hrflow/compiler"
	"github.com/hrflow/hrflow/config"
	"github.com/hrflow/hrflow/cvparser"
	"github.com/hrflow/hrflow/engine"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/persistence"
	"github.com/hrflow/hrflow/persistence/inmem"
	"github.com/hrflow/hrflow/persistence/redis"
	"github.com/hrflow/hrflow/rest"
	"github.com/hrflow/hrflow/service"
	"github.com/hrflow/hrflow/util"
	"go.uber.org/zap"
)

type Agent struct {
	Config config.Config

	workflowStorage  persistence.WorkflowStorage
	executionStorage persistence.ExecutionStorage
	domainStorage    persistence.DomainStorage
	domainSource     *allowlist.CachedDomainSource
	domainRefresher  *util.TickWorker
	executionService *service.WorkflowExecutionService
	httpServer       *rest.Server

	shutdown     bool
	shutdowns    chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

func New(config config.Config) (*Agent, error) {
	a := &Agent{
		Config:    config,
		shutdowns: make(chan struct{}),
	}
	setup := []func() error{
		a.setupStorage,
		a.setupAuditTrail,
		a.setupAllowlist,
		a.setupExecutionService,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupStorage() error {
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		conf := redis.Config{
			Addrs:     a.Config.RedisConfig.Addrs,
			Namespace: a.Config.RedisConfig.Namespace,
			Password:  a.Config.RedisConfig.Password,
		}
		a.workflowStorage = redis.NewRedisWorkflowStorage(conf)
		a.executionStorage = redis.NewRedisExecutionStorage(conf)
		a.domainStorage = redis.NewRedisDomainStorage(conf)
	case config.STORAGE_TYPE_INMEM:
		a.workflowStorage = inmem.NewInMemWorkflowStorage()
		a.executionStorage = inmem.NewInMemExecutionStorage()
		a.domainStorage = inmem.NewInMemDomainStorage()
	default:
		return fmt.Errorf("unknown storage implementation %s", a.Config.StorageType)
	}
	return nil
}

func (a *Agent) setupAuditTrail() error {
	collectorType := audit.LOG_FILE_TRAIL_COLLECTOR
	if a.Config.AuditLogFile == "" {
		collectorType = audit.NOOP_TRAIL_COLLECTOR
	}
	return audit.InitTrailCollector(audit.TrailCollectorConfig{
		FileName:      a.Config.AuditLogFile,
		CollectorType: collectorType,
	})
}

func (a *Agent) setupAllowlist() error {
	ttl := a.Config.AllowlistTTL
	if ttl < 10*time.Second {
		ttl = time.Minute
	}
	a.domainSource = allowlist.NewCachedDomainSource(a.domainStorage, ttl)
	a.domainSource.Refresh()
	a.domainRefresher = util.NewTickWorker("allowlist-refresh", ttl/2, func() {
		a.domainSource.Refresh()
	}, &a.wg)
	a.domainRefresher.Start()
	return nil
}

func (a *Agent) setupExecutionService() error {
	validator := allowlist.NewValidator(a.domainSource)
	comp := compiler.New(validator, a.Config.CredentialsConf)
	engineClient := engine.NewRestClient(engine.Config{
		BaseUrl:        a.Config.EngineConfig.BaseUrl,
		WebhookBaseUrl: a.Config.EngineConfig.WebhookBaseUrl,
		ApiKey:         a.Config.EngineConfig.ApiKey,
		RequestTimeout: a.Config.EngineConfig.RequestTimeout,
	})
	cvClient := cvparser.NewRestClient(a.Config.CvParserUrl)
	if a.Config.CvParserUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cvClient.Health(ctx); err != nil {
			logger.Warn("cv parser service unreachable", zap.String("url", a.Config.CvParserUrl), zap.Error(err))
		}
	}
	a.executionService = service.NewWorkflowExecutionService(a.workflowStorage, a.executionStorage, comp, engineClient, cvClient)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(a.Config.HttpPort, a.executionService, a.workflowStorage, a.domainStorage)
	return err
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down agent")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	close(a.shutdowns)

	shutdown := []func() error{
		a.httpServer.Stop,
		func() error {
			a.domainRefresher.Stop()
			return nil
		},
		func() error {
			audit.StopTrailCollector()
			return nil
		},
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	logger.Info("waiting for all services to shutdown...")
	a.wg.Wait()
	return nil
}
