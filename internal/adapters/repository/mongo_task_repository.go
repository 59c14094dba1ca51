package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/domain/entities"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/database"
	"github.com/yuvrajinbhakti/UHaveToDo/internal/ports"
)

// TasksCollection is the collection holding task documents
const TasksCollection = "todos"

// maxUpdateAttempts bounds the compare-and-swap loop of Update
const maxUpdateAttempts = 3

// taskDocument is the stored shape of a task
type taskDocument struct {
	ID              string     `bson:"_id"`
	Title           string     `bson:"title"`
	Description     string     `bson:"description"`
	Completed       bool       `bson:"completed"`
	Priority        string     `bson:"priority"`
	DueDate         *time.Time `bson:"dueDate,omitempty"`
	Tags            []string   `bson:"tags"`
	ExternalEventID string     `bson:"externalEventId,omitempty"`
	CreatedAt       time.Time  `bson:"createdAt"`
	UpdatedAt       time.Time  `bson:"updatedAt"`
}

func newTaskDocument(task *entities.Task) taskDocument {
	doc := taskDocument{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Completed:       task.Completed,
		Priority:        string(task.Priority),
		Tags:            nonNilTags(task.Tags),
		ExternalEventID: task.ExternalEventID,
		CreatedAt:       task.CreatedAt.UTC(),
		UpdatedAt:       task.UpdatedAt.UTC(),
	}
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		doc.DueDate = &due
	}
	return doc
}

func (doc taskDocument) toEntity() *entities.Task {
	task := &entities.Task{
		ID:              doc.ID,
		Title:           doc.Title,
		Description:     doc.Description,
		Completed:       doc.Completed,
		Priority:        entities.Priority(doc.Priority),
		Tags:            nonNilTags(doc.Tags),
		ExternalEventID: doc.ExternalEventID,
		CreatedAt:       doc.CreatedAt.UTC(),
		UpdatedAt:       doc.UpdatedAt.UTC(),
	}
	if doc.DueDate != nil {
		due := doc.DueDate.UTC()
		task.DueDate = &due
	}
	return task
}

// MongoTaskRepository implements ports.TaskRepository on MongoDB
type MongoTaskRepository struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewMongoTaskRepository creates a new MongoDB task repository and makes sure
// the listing index exists.
func NewMongoTaskRepository(ctx context.Context, db *database.MongoDB) (*MongoTaskRepository, error) {
	collection := db.Database.Collection(TasksCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	})
	if err != nil {
		return nil, fmt.Errorf("create task index: %w", err)
	}

	return &MongoTaskRepository{db: db, collection: collection}, nil
}

var _ ports.TaskRepository = (*MongoTaskRepository)(nil)

func (r *MongoTaskRepository) Create(ctx context.Context, task *entities.Task) error {
	if _, err := r.collection.InsertOne(ctx, newTaskDocument(task)); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) List(ctx context.Context) ([]*entities.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, doc.toEntity())
	}
	return tasks, nil
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

// Update replaces the document only if updatedAt still holds the value that
// was read, retrying a few times when another writer got there first.
func (r *MongoTaskRepository) Update(ctx context.Context, id string, mutate ports.TaskMutator) (*entities.Task, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.find(ctx, id)
		if err != nil {
			return nil, err
		}

		task := current.toEntity()
		if err := mutate(task); err != nil {
			return nil, err
		}
		task.ID = current.ID
		task.CreatedAt = current.CreatedAt.UTC()

		filter := bson.M{"_id": id, "updatedAt": current.UpdatedAt}
		result, err := r.collection.ReplaceOne(ctx, filter, newTaskDocument(task))
		if err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
		if result.MatchedCount == 1 {
			return task, nil
		}
	}

	return nil, fmt.Errorf("update task %s: %w", id, entities.ErrConcurrentUpdate)
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id string) (*entities.Task, error) {
	var doc taskDocument
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *MongoTaskRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func (r *MongoTaskRepository) Close() error {
	return r.db.Close()
}

func (r *MongoTaskRepository) find(ctx context.Context, id string) (*taskDocument, error) {
	var doc taskDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return &doc, nil
}
