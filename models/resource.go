package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource is a learning asset (article, video, exercise...) that can be found
// through semantic search. Embedding is derived from Name and Description and is
// never accepted from API input.
type Resource struct {
	MongoID      string    `json:"mongo_id,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Slug         string    `json:"slug" binding:"required"`
	Asset        string    `json:"asset"`
	ResourceType string    `json:"resource_type"`
	Embedding    []float32 `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScoredResource pairs a search hit with the index's similarity score.
type ScoredResource struct {
	Resource Resource `json:"resource"`
	Score    float64  `json:"score"`
}

// ResourceDocument is the persisted shape of a Resource in the resources collection.
type ResourceDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Description  string             `bson:"description"`
	Slug         string             `bson:"slug"`
	Asset        string             `bson:"asset"`
	ResourceType string             `bson:"resource_type"`
	Embedding    []float32          `bson:"embedding,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// EmbeddingText returns the text the embedding is computed from, and whether the
// resource is eligible for one at all (both name and description populated).
func (r Resource) EmbeddingText() (string, bool) {
	name := strings.TrimSpace(r.Name)
	desc := strings.TrimSpace(r.Description)
	if name == "" || desc == "" {
		return "", false
	}
	return name + "\n\n" + desc, true
}

// ToDocument maps a Resource to its stored form. MongoID is dropped; the caller
// assigns the ObjectID.
func (r Resource) ToDocument() ResourceDocument {
	return ResourceDocument{
		Name:         r.Name,
		Description:  r.Description,
		Slug:         r.Slug,
		Asset:        r.Asset,
		ResourceType: r.ResourceType,
		Embedding:    r.Embedding,
		CreatedAt:    r.CreatedAt,
	}
}

// ResourceFromDocument hydrates a Resource, deriving MongoID from _id.
func ResourceFromDocument(d ResourceDocument) Resource {
	return Resource{
		MongoID:      hexID(d.ID),
		Name:         d.Name,
		Description:  d.Description,
		Slug:         d.Slug,
		Asset:        d.Asset,
		ResourceType: d.ResourceType,
		Embedding:    d.Embedding,
		CreatedAt:    d.CreatedAt,
	}
}

// UpdateFields returns the business fields written by an update. embedding and
// created_at are deliberately absent.
func (d ResourceDocument) UpdateFields() bson.M {
	return bson.M{
		"name":          d.Name,
		"description":   d.Description,
		"slug":          d.Slug,
		"asset":         d.Asset,
		"resource_type": d.ResourceType,
	}
}

// ResourceProjection lists the fields returned by search hydration.
var ResourceProjection = bson.M{
	"name":          1,
	"description":   1,
	"slug":          1,
	"asset":         1,
	"resource_type": 1,
	"created_at":    1,
}

func hexID(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
