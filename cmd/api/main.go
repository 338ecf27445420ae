package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/vitorfp/academia/attendance"
	"github.com/vitorfp/academia/auth"
	"github.com/vitorfp/academia/broker"
	"github.com/vitorfp/academia/db"
	"github.com/vitorfp/academia/event"
	"github.com/vitorfp/academia/exercise"
	"github.com/vitorfp/academia/instructor"
	"github.com/vitorfp/academia/member"
	"github.com/vitorfp/academia/payment"
	"github.com/vitorfp/academia/plan"
	"github.com/vitorfp/academia/subscription"
	"github.com/vitorfp/academia/workout"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v7"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var authEnvironment auth.Environment
	var dotFile string
	var err error

	// Determine running environment and initialize structural logger
	env := os.Getenv("API_ENV")
	if "production" == env {
		dotFile = ".env.production"
		authEnvironment = auth.EnvProduction
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		authEnvironment = auth.EnvDevelopment
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))
	defer logger.Sync()

	// Load configurations from dotFile
	if err := godotenv.Load(dotFile); err != nil {
		logger.Fatal("Cannot load configurations from .env",
			zap.Error(err),
		)
	}

	if os.Getenv("SENTRY_DSN") != "" {
		// Initialize sentry for error reporting
		if err := sentry.Init(sentry.ClientOptions{
			Environment: string(authEnvironment),
			Debug:       authEnvironment == auth.EnvDevelopment,
		}); err != nil {
			logger.Fatal("Cannot initialize sentry",
				zap.Error(err),
			)
		}
		defer sentry.Flush(time.Second * 2)

		// Attach sentry to zap so we can do automatic error capturing
		cfg := zapsentry.Configuration{
			Level: zapcore.ErrorLevel,
			Tags: map[string]string{
				"component": "api",
			},
		}
		core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
		if err != nil {
			logger.Fatal("Cannot initialize zapsentry",
				zap.Error(err),
			)
		}
		logger = zapsentry.AttachCoreToLogger(core, logger)
	}

	// Initialize backend connections
	db, err := db.New(logger, os.Getenv("POSTGRES_URI"))
	if err != nil {
		logger.Fatal("Cannot connect to Postgres",
			zap.Error(err),
		)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{os.Getenv("REDIS_URI")},
		Password: os.Getenv("REDIS_PW"),
		DB:       0,
	})
	if _, err := rdb.Ping().Result(); err != nil {
		logger.Fatal("Cannot connect to Redis",
			zap.Error(err),
		)
	}
	defer rdb.Close()

	var producer event.Producer
	if os.Getenv("AMQP_URI") != "" {
		amqpBroker, err := broker.NewAMQPBroker(os.Getenv("AMQP_URI"))
		if err != nil {
			logger.Fatal("Cannot connect to Broker",
				zap.Error(err),
			)
		}
		producer = amqpBroker
	} else {
		logger.Info("AMQP_URI not set, events will be discarded")
		producer = event.Discard()
	}
	defer producer.Close()

	smtpAuth := smtp.PlainAuth("", os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"), os.Getenv("SMTP_HOST"))

	authManager, err := auth.New(auth.Options{
		Redis:  rdb,
		Logger: logger,

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		StaffEmails:   strings.Split(os.Getenv("STAFF_EMAILS"), ","),

		Environment: authEnvironment,
		SMTPAuth:    smtpAuth,
		From:        os.Getenv("SMTP_FROM"),
		Hostname:    os.Getenv("SMTP_HOST") + ":" + os.Getenv("SMTP_PORT"),
		EmailOption: auth.EmailOption{
			Name: os.Getenv("SITE_NAME"),
			LinkGenerator: func(uid, token string) string {
				return fmt.Sprintf("%s/login/%s/%s", os.Getenv("SITE_URL"), uid, token)
			},
		},
	})
	if err != nil {
		logger.Fatal("Cannot initialize AuthManager",
			zap.Error(err),
		)
	}

	authRouter, err := auth.NewService(auth.ServiceOptions{
		Auth:   authManager,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Auth Service Router",
			zap.Error(err),
		)
	}

	memberManager, err := member.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize MemberManager",
			zap.Error(err),
		)
	}
	memberRouter, err := member.NewService(member.ServiceOptions{
		MemberManager: memberManager,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Member Service Router",
			zap.Error(err),
		)
	}

	instructorManager, err := instructor.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize InstructorManager",
			zap.Error(err),
		)
	}
	instructorRouter, err := instructor.NewService(instructor.ServiceOptions{
		InstructorManager: instructorManager,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Instructor Service Router",
			zap.Error(err),
		)
	}

	planManager, err := plan.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize PlanManager",
			zap.Error(err),
		)
	}
	planRouter, err := plan.NewService(plan.ServiceOptions{
		PlanManager: planManager,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Plan Service Router",
			zap.Error(err),
		)
	}

	exerciseManager, err := exercise.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize ExerciseManager",
			zap.Error(err),
		)
	}
	exerciseRouter, err := exercise.NewService(exercise.ServiceOptions{
		ExerciseManager: exerciseManager,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Exercise Service Router",
			zap.Error(err),
		)
	}

	subscriptionStore, err := subscription.NewStore(db)
	if err != nil {
		logger.Fatal("Cannot initialize subscription Store",
			zap.Error(err),
		)
	}
	subscriptionManager, err := subscription.NewManager(subscription.ManagerOptions{
		Store:  subscriptionStore,
		Events: producer,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize SubscriptionManager",
			zap.Error(err),
		)
	}
	subscriptionRouter, err := subscription.NewService(subscription.ServiceOptions{
		SubscriptionManager: subscriptionManager,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Subscription Service Router",
			zap.Error(err),
		)
	}

	paymentStore, err := payment.NewStore(db)
	if err != nil {
		logger.Fatal("Cannot initialize payment Store",
			zap.Error(err),
		)
	}
	paymentManager, err := payment.NewManager(payment.ManagerOptions{
		Store:  paymentStore,
		Events: producer,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize PaymentManager",
			zap.Error(err),
		)
	}
	paymentRouter, err := payment.NewService(payment.ServiceOptions{
		PaymentManager: paymentManager,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Payment Service Router",
			zap.Error(err),
		)
	}

	workoutManager, err := workout.NewManager(logger, db)
	if err != nil {
		logger.Fatal("Cannot initialize WorkoutManager",
			zap.Error(err),
		)
	}
	workoutStore, err := workout.NewStore(db)
	if err != nil {
		logger.Fatal("Cannot initialize workout Store",
			zap.Error(err),
		)
	}
	ordering, err := workout.NewOrdering(workout.OrderingOptions{
		Store:  workoutStore,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize workout Ordering",
			zap.Error(err),
		)
	}
	workoutRouter, err := workout.NewService(workout.ServiceOptions{
		WorkoutManager: workoutManager,
		Ordering:       ordering,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Workout Service Router",
			zap.Error(err),
		)
	}

	attendanceManager, err := attendance.NewManager(logger, db, producer)
	if err != nil {
		logger.Fatal("Cannot initialize AttendanceManager",
			zap.Error(err),
		)
	}
	attendanceRouter, err := attendance.NewService(attendance.ServiceOptions{
		AttendanceManager: attendanceManager,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize Attendance Service Router",
			zap.Error(err),
		)
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{os.Getenv("SITE_URL")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	rootRouter.Mount("/login", authRouter.Router())

	rootRouter.Group(func(r chi.Router) {
		r.Use(authManager.Middleware())
		r.Use(authManager.ClaimCheck())

		r.Mount("/members", memberRouter.Router())
		r.Mount("/instructors", instructorRouter.Router())
		r.Mount("/plans", planRouter.Router())
		r.Mount("/exercises", exerciseRouter.Router())
		r.Mount("/subscriptions", subscriptionRouter.Router())
		r.Mount("/payments", paymentRouter.Router())
		r.Mount("/workouts", workoutRouter.Router())
		r.Mount("/attendance", attendanceRouter.Router())
	})

	rootRouter.HandleFunc("/pprof/*", pprof.Index)
	rootRouter.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	rootRouter.HandleFunc("/pprof/profile", pprof.Profile)
	rootRouter.HandleFunc("/pprof/symbol", pprof.Symbol)
	rootRouter.HandleFunc("/pprof/trace", pprof.Trace)

	listen := os.Getenv("LISTEN_ADDR")
	if listen == "" {
		listen = ":8080"
	}

	srv := &http.Server{
		Handler: rootRouter,
		Addr:    listen,
	}

	logger.Info("API started",
		zap.String("Addr", listen),
	)

	log.Fatalln(srv.ListenAndServe())
}
