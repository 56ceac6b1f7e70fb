package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/auth"
	"github.com/fieldline-app/fieldline-backend/pkg/communication"
	"github.com/fieldline-app/fieldline-backend/pkg/drivetime"
	"github.com/fieldline-app/fieldline-backend/pkg/email"
	"github.com/fieldline-app/fieldline-backend/pkg/employees"
	"github.com/fieldline-app/fieldline-backend/pkg/environment"
	"github.com/fieldline-app/fieldline-backend/pkg/locking"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/notifications"
	"github.com/fieldline-app/fieldline-backend/pkg/payroll"
	"github.com/fieldline-app/fieldline-backend/pkg/schedules"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	var logging logger.Interface = logger.Logger{}
	fmt.Println("Server is starting up...")

	environment.Initialize()

	client, err := mongo.NewClient(options.Client().ApplyURI(environment.Global.DatabaseUrl))
	if err != nil {
		log.Fatal(err)
	}

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		log.Panic(err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Panic(err)
	}

	defer func() {
		err := client.Disconnect(ctx)
		if err != nil {
			logging.Fatal(err)
		}
	}()

	fmt.Println("Database connected")

	db := client.Database(environment.Global.Database)

	employeeCollection := db.Collection("Employees")
	scheduleCollection := db.Collection("Schedules")

	responseManager := communication.ResponseManager{Logger: logging}

	var locker locking.LockerInterface
	var employeeCache employees.EmployeeCacheInterface

	if environment.Global.Redis != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     environment.Global.Redis,
			Password: environment.Global.RedisPassword,
		})

		err = redisClient.Ping(ctx).Err()
		if err != nil {
			log.Panic(err)
		}

		locker = locking.NewLockerRedis(redisClient)
		employeeCache = employees.NewEmployeeCacheRedis(redisClient)
		fmt.Println("Redis connected")
	} else {
		locker = locking.NewLockerMemory()
		employeeCache, err = employees.NewEmployeeCacheMemory()
		if err != nil {
			log.Panic(err)
		}
	}

	mailer := email.NewSendInBlueService(environment.Global.Sendinblue)

	employeeRepository := employees.EmployeeRepository{DB: employeeCollection, Logger: logging}
	scheduleRepository := &schedules.MongoDBScheduleRepository{DB: scheduleCollection, Logger: logging}

	if environment.Global.Firebase != "" {
		notificationController := notifications.NewNotificationController(logging, employeeRepository)
		scheduleRepository.Subscribe(&notificationController)
	}

	employeeHandler := employees.Handler{
		EmployeeRepository: employeeRepository,
		EmployeeCache:      employeeCache,
		Logger:             logging,
		ResponseManager:    &responseManager,
		Secret:             environment.Global.Secret,
		EmailService:       mailer,
	}

	scheduleHandler := schedules.Handler{
		ScheduleRepository: scheduleRepository,
		EmployeeRepository: employeeRepository,
		EmployeeCache:      employeeCache,
		Locker:             locker,
		Logger:             logging,
		ResponseManager:    &responseManager,
	}

	driveTimeService := drivetime.Service{
		ScheduleRepository: scheduleRepository,
		Locker:             locker,
		Logger:             logging,
	}

	driveTimeHandler := drivetime.Handler{
		Service:         &driveTimeService,
		Logger:          logging,
		ResponseManager: &responseManager,
	}

	payrollService := payroll.Service{ScheduleRepository: scheduleRepository}
	payrollHandler := payroll.Handler{
		Service:         &payrollService,
		Mailer:          mailer,
		Logger:          logging,
		ResponseManager: &responseManager,
	}

	authMiddleware := auth.AuthenticationMiddleware{
		ResponseManager: &responseManager,
		Secret:          environment.Global.Secret,
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)

		_, err := fmt.Fprint(writer, "Welcome to the Fieldline API! ✔")
		if err != nil {
			log.Printf("Error: %v\n", err)
		}
	})

	apiAuth := r.PathPrefix("/v1/auth").Subrouter()
	apiAuth.HandleFunc("/register", employeeHandler.EmployeeRegister).Methods(http.MethodPost)
	apiAuth.HandleFunc("/login", employeeHandler.EmployeeLogin).Methods(http.MethodPost)
	apiAuth.HandleFunc("/refresh", employeeHandler.EmployeeRefresh).Methods(http.MethodPost)
	apiAuth.HandleFunc("/register/verify", employeeHandler.VerifyRegistrationGet).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(authMiddleware.Middleware)

	api.HandleFunc("/employee", employeeHandler.EmployeeGet).Methods(http.MethodGet)
	api.HandleFunc("/employees", employeeHandler.EmployeeGetAll).Methods(http.MethodGet)
	api.HandleFunc("/employee/{employeeID}/rates", employeeHandler.EmployeeRatesPatch).Methods(http.MethodPatch)
	api.HandleFunc("/employee/device", employeeHandler.EmployeeAddDevice).Methods(http.MethodPost)
	api.HandleFunc("/employee/device/{deviceToken}", employeeHandler.EmployeeRemoveDevice).Methods(http.MethodDelete)

	api.HandleFunc("/schedule", scheduleHandler.ScheduleAdd).Methods(http.MethodPost)
	api.HandleFunc("/schedules", scheduleHandler.ScheduleGetAll).Methods(http.MethodGet)
	api.HandleFunc("/schedule/{scheduleID}", scheduleHandler.ScheduleGet).Methods(http.MethodGet)
	api.HandleFunc("/schedule/{scheduleID}", scheduleHandler.ScheduleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/schedule/{scheduleID}", scheduleHandler.ScheduleDelete).Methods(http.MethodDelete)

	api.HandleFunc("/schedule/{scheduleID}/timesheet", scheduleHandler.TimesheetEntryAdd).Methods(http.MethodPost)
	api.HandleFunc("/schedule/{scheduleID}/timesheet/{entryID}", scheduleHandler.TimesheetEntryUpdate).Methods(http.MethodPut)
	api.HandleFunc("/schedule/{scheduleID}/timesheet/{entryID}", scheduleHandler.TimesheetEntryDelete).Methods(http.MethodDelete)
	api.HandleFunc("/schedule/{scheduleID}/quicklog", scheduleHandler.QuickLogAdd).Methods(http.MethodPost)

	api.HandleFunc("/drivetime/start", driveTimeHandler.DriveTimeStart).Methods(http.MethodPost)
	api.HandleFunc("/drivetime/stop", driveTimeHandler.DriveTimeStop).Methods(http.MethodPost)
	api.HandleFunc("/drivetime/active", driveTimeHandler.DriveTimeActive).Methods(http.MethodGet)

	api.HandleFunc("/payroll/report", payrollHandler.ReportGet).Methods(http.MethodGet)
	api.HandleFunc("/payroll/report/send", payrollHandler.ReportSend).Methods(http.MethodPost)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{environment.Global.Cors}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	fmt.Printf("Listening on :%s\n", environment.Global.Port)
	log.Panic(http.ListenAndServe(":"+environment.Global.Port, cors(r)))
}
