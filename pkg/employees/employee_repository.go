package employees

import (
	"context"
	"time"

	"github.com/fieldline-app/fieldline-backend/pkg/logger"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EmployeeRepositoryInterface is the interface for an EmployeeRepository
type EmployeeRepositoryInterface interface {
	Add(ctx context.Context, employee *Employee) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindByEmail(ctx context.Context, email string) (*Employee, error)
	FindByVerificationToken(ctx context.Context, token string) (*Employee, error)
	FindAll(ctx context.Context, page int, pageSize int) ([]*Employee, int, error)
	Update(ctx context.Context, employee *Employee) error
	Remove(ctx context.Context, id string) error
}

// EmployeeRepository does everything related to employee storing
type EmployeeRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// Add adds an employee
func (s EmployeeRepository) Add(ctx context.Context, employee *Employee) error {
	employee.CreatedAt = time.Now()
	employee.LastModifiedAt = time.Now()
	employee.ID = primitive.NewObjectID()
	_, err := s.DB.InsertOne(ctx, employee)
	return err
}

// FindByID finds an employee by ID
func (s EmployeeRepository) FindByID(ctx context.Context, id string) (*Employee, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var e = Employee{}
	result := s.DB.FindOne(ctx, bson.M{"_id": objectID})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err = result.Decode(&e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByEmail finds an employee by email
func (s EmployeeRepository) FindByEmail(ctx context.Context, email string) (*Employee, error) {
	var e = Employee{}

	result := s.DB.FindOne(ctx, bson.M{"email": email})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err := result.Decode(&e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindByVerificationToken finds an employee by its email verification token
func (s EmployeeRepository) FindByVerificationToken(ctx context.Context, token string) (*Employee, error) {
	var e = Employee{}

	result := s.DB.FindOne(ctx, bson.M{"emailVerificationToken": token})
	if result.Err() != nil {
		return nil, result.Err()
	}

	err := result.Decode(&e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindAll finds all employees paginated
func (s EmployeeRepository) FindAll(ctx context.Context, page int, pageSize int) ([]*Employee, int, error) {
	var results []*Employee
	offset := page * pageSize

	findOptions := options.Find()
	findOptions.SetSort(bson.M{"lastname": 1})
	findOptions.SetSkip(int64(offset))
	findOptions.SetLimit(int64(pageSize))

	queryFilter := bson.M{"isDeactivated": false}

	cursor, err := s.DB.Find(ctx, queryFilter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.DB.CountDocuments(ctx, queryFilter)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &results)
	if err != nil {
		return nil, 0, err
	}
	return results, int(count), nil
}

// Update updates an employee
func (s EmployeeRepository) Update(ctx context.Context, employee *Employee) error {
	employee.LastModifiedAt = time.Now()

	result, err := s.DB.UpdateOne(ctx, bson.M{"_id": employee.ID}, bson.M{"$set": employee})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return errors.New("updated count != 1")
	}

	return nil
}

// Remove deletes an employee
func (s EmployeeRepository) Remove(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := s.DB.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}

	if result.DeletedCount != 1 {
		return errors.New("deleted count != 1")
	}

	return nil
}
