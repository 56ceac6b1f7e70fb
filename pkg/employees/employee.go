package employees

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Employee is the model for an employee
type Employee struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Firstname      string             `json:"firstname" bson:"firstname" validate:"required"`
	Lastname       string             `json:"lastname" bson:"lastname" validate:"required"`
	Password       string             `json:"-" bson:"password" validate:"required"`
	Email          string             `json:"email" bson:"email" validate:"required,email"`
	Phone          string             `json:"phone" bson:"phone"`
	Role           string             `json:"role" bson:"role"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt" validate:"isdefault"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt" validate:"isdefault"`

	// Hourly rates are the live profile values. Timesheet entries copy them
	// into rate snapshots at edit time; payroll never reads these directly.
	HourlyRateSite  float64 `json:"hourlyRateSITE" bson:"hourlyRateSITE"`
	HourlyRateDrive float64 `json:"hourlyRateDrive" bson:"hourlyRateDrive"`

	EmailVerified          bool          `json:"emailVerified" bson:"emailVerified"`
	EmailVerificationToken string        `json:"-" bson:"emailVerificationToken"`
	IsDeactivated          bool          `json:"isDeactivated" bson:"isDeactivated"`
	DeviceTokens           []DeviceToken `json:"-" bson:"deviceTokens"`
}

// EmployeeLogin is the model for a login request
type EmployeeLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" bson:"password" validate:"required"`
}

// DeviceToken is a registered push notification device
type DeviceToken struct {
	Token          string    `json:"token" bson:"token"`
	LastRegistered time.Time `json:"lastRegistered" bson:"lastRegistered"`
}

// RoleField is a field employee
const RoleField = "field"

// RoleForeman is a crew foreman
const RoleForeman = "foreman"

// RoleOffice is office staff
const RoleOffice = "office"
