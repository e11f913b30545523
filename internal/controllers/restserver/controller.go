package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/pvforecast/internal/constants"
	"github.com/chrissnell/pvforecast/internal/interfaces"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Dependencies are the services the REST server reads from. Stored and
// Health may be nil when no database is configured.
type Dependencies struct {
	Forecasts interfaces.ForecastProvider
	Stored    interfaces.StoredEstimates
	Health    *storage.HealthManager
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	deps       Dependencies
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc *config.RESTServerData, deps Dependencies, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Forecasts == nil {
		return nil, fmt.Errorf("REST server requires a forecast provider")
	}

	var restConfig config.RESTServerData
	if rc != nil {
		restConfig = *rc
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if restConfig.ListenAddr == "" {
		logger.Infof("rest.listen_addr not provided; defaulting to %s (all interfaces)", constants.DefaultRESTListenAddr)
		restConfig.ListenAddr = constants.DefaultRESTListenAddr
	}

	if restConfig.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", constants.DefaultRESTPort)
		restConfig.Port = constants.DefaultRESTPort
	}

	if (restConfig.Cert == "") != (restConfig.Key == "") {
		return nil, fmt.Errorf("rest.cert and rest.key must be set together")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: restConfig,
		deps:       deps,
		logger:     logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", restConfig.ListenAddr, restConfig.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server controller on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.requestLogger)

	router.HandleFunc("/installations", c.handlers.GetInstallations).Methods(http.MethodGet)
	router.HandleFunc("/installations/{name}", c.handlers.GetInstallation).Methods(http.MethodGet)
	router.HandleFunc("/estimate/{name}", c.handlers.GetEstimate).Methods(http.MethodGet)
	router.HandleFunc("/daily/{name}", c.handlers.GetDaily).Methods(http.MethodGet)
	router.HandleFunc("/stored/{name}/{span}", c.handlers.GetStored).Methods(http.MethodGet)
	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs every request at debug level with its status and latency
func (c *Controller) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
