package notifications

import (
	"context"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/fieldline-app/fieldline-backend/pkg/employees"
	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/fieldline-app/fieldline-backend/pkg/timesheet"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/api/option"
)

// NotificationController pushes timesheet changes to the devices of the
// affected employee via Google Cloud Messaging
type NotificationController struct {
	Logger             logger.Interface
	Client             messaging.Client
	EmployeeRepository employees.EmployeeRepositoryInterface
}

// NewNotificationController constructs a NotificationController
func NewNotificationController(logger logger.Interface, employeeRepository employees.EmployeeRepositoryInterface) NotificationController {
	ctrl := NotificationController{}
	ctx := context.Background()

	key := os.Getenv("FIREBASE")
	projectID := os.Getenv("GCP_PROJECT_ID")

	opt := option.WithAPIKey(key)
	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		logger.Fatal(err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Fatal(err)
	}

	ctrl.Client = *client
	ctrl.Logger = logger
	ctrl.EmployeeRepository = employeeRepository

	return ctrl
}

// OnNotify gets called when a timesheet entry changes
func (n *NotificationController) OnNotify(scheduleID primitive.ObjectID, entry *timesheet.Record) {
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	employee, err := n.EmployeeRepository.FindByEmail(ctx, entry.Employee)
	if err != nil {
		n.Logger.Error("Could not find employee", err)
		return
	}

	if len(employee.DeviceTokens) == 0 {
		return
	}

	var tokens []string
	for _, token := range employee.DeviceTokens {
		tokens = append(tokens, token.Token)
	}

	message := &messaging.MulticastMessage{
		Data: map[string]string{
			"collapse_key": "sync",
			"scheduleId":   scheduleID.Hex(),
			"entryId":      entry.ID.Hex(),
		},
		Tokens: tokens,
	}

	_, err = n.Client.SendMulticast(ctx, message)
	if err != nil {
		n.Logger.Error("Could not send messaging request", err)
	}
}
