package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/glowlabs/glowlabs/internal/config"
	"github.com/glowlabs/glowlabs/internal/handlers"
	"github.com/glowlabs/glowlabs/internal/messaging"
	"github.com/glowlabs/glowlabs/internal/middleware"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/glowlabs/glowlabs/internal/repository"
	"github.com/glowlabs/glowlabs/internal/service"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Initialize repositories
	clientRepo := repository.NewClientRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	employeeRepo := repository.NewEmployeeRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	appointmentRepo := repository.NewAppointmentRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	// Initialize services
	tokenService, err := service.NewTokenService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}

	customerEvaluator := service.NewSessionEvaluator(
		tokenService,
		service.NewCustomerDirectory(clientRepo),
		models.CustomerCookies(),
		service.CustomerSessionTTLs(&cfg.JWT),
		logger,
	)
	staffEvaluator := service.NewSessionEvaluator(
		tokenService,
		service.NewStaffDirectory(employeeRepo),
		models.StaffCookies(),
		service.StaffSessionTTLs(&cfg.JWT),
		logger,
	)

	messenger := messaging.NewTwilioMessenger(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, logger)
	markers := service.NewRedisReminderMarkers(redisClient, logger)
	scheduler := service.NewReminderScheduler(
		appointmentRepo,
		markers,
		messenger,
		cfg.Twilio.FromNumber,
		cfg.Reminder.TickInterval,
		logger,
	)

	authHandlers := handlers.NewAuthHandlers(clientRepo, employeeRepo, tokenService, cfg, logger)
	socialHandlers := handlers.NewSocialHandlers(clientRepo, tokenService, cfg, logger)
	smsHandlers := handlers.NewSMSHandlers(appointmentRepo, logger)

	customerSession := middleware.NewCustomerSessionMiddleware(customerEvaluator, logger)
	staffSession := middleware.NewStaffSessionMiddleware(staffEvaluator, logger)

	router := setupRouter(authHandlers, socialHandlers, smsHandlers, customerSession, staffSession, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go scheduler.Run(schedulerCtx)

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func setupRouter(
	authHandlers *handlers.AuthHandlers,
	socialHandlers *handlers.SocialHandlers,
	smsHandlers *handlers.SMSHandlers,
	customerSession *middleware.SessionMiddleware,
	staffSession *middleware.SessionMiddleware,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(customerSession.Handler)
	router.Use(staffSession.Handler)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	router.HandleFunc("/auth/facebook", socialHandlers.Begin).Methods("GET")
	router.HandleFunc("/auth/facebook/callback", socialHandlers.Callback).Methods("GET")
	router.HandleFunc("/smsresponse", smsHandlers.SMSResponse).Methods("GET")
	router.HandleFunc("/{id}/consentform", authHandlers.ConsentForm).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", authHandlers.Register).Methods("POST", "OPTIONS")
	auth.HandleFunc("/login", authHandlers.Login).Methods("POST", "OPTIONS")
	auth.HandleFunc("/logout", authHandlers.Logout).Methods("POST", "OPTIONS")
	auth.HandleFunc("/invalidate", authHandlers.InvalidateAll).Methods("POST", "OPTIONS")
	auth.HandleFunc("/admin/login", authHandlers.AdminLogin).Methods("POST", "OPTIONS")
	auth.HandleFunc("/admin/password", authHandlers.SetPermanentPassword).Methods("POST", "OPTIONS")

	// Password setup stays outside the guard: a bootstrapped employee is not
	// authenticated yet. Invalidation requires a full staff session.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireStaff)
	admin.HandleFunc("/invalidate", authHandlers.AdminInvalidateAll).Methods("POST", "OPTIONS")

	profile := api.PathPrefix("/profile").Subrouter()
	profile.HandleFunc("/phone", authHandlers.CompleteProfile).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("/me").Subrouter()
	protected.Use(middleware.RequireCustomer)
	protected.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.CustomerID(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"id":"%s"}`, id)))
	}).Methods("GET")

	return router
}
