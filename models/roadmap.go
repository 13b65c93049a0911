package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roadmap is a structured learning path. Title is its lookup key.
type Roadmap struct {
	MongoID     string        `json:"mongo_id,omitempty"`
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Topic       string        `json:"topic,omitempty"`
	Steps       []RoadmapStep `json:"steps"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RoadmapStep references resources and a quiz by slug only.
type RoadmapStep struct {
	Title         string   `bson:"title" json:"title"`
	Description   string   `bson:"description" json:"description"`
	ResourceSlugs []string `bson:"resource_slugs,omitempty" json:"resource_slugs,omitempty"`
	QuizSlug      string   `bson:"quiz_slug,omitempty" json:"quiz_slug,omitempty"`
}

type RoadmapDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Topic       string             `bson:"topic,omitempty"`
	Steps       []RoadmapStep      `bson:"steps"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (r Roadmap) ToDocument() RoadmapDocument {
	return RoadmapDocument{
		Title:       r.Title,
		Description: r.Description,
		Topic:       r.Topic,
		Steps:       r.Steps,
		CreatedAt:   r.CreatedAt,
	}
}

func RoadmapFromDocument(d RoadmapDocument) Roadmap {
	return Roadmap{
		MongoID:     hexID(d.ID),
		Title:       d.Title,
		Description: d.Description,
		Topic:       d.Topic,
		Steps:       d.Steps,
		CreatedAt:   d.CreatedAt,
	}
}

func (d RoadmapDocument) UpdateFields() bson.M {
	steps := d.Steps
	if steps == nil {
		steps = []RoadmapStep{}
	}
	return bson.M{
		"title":       d.Title,
		"description": d.Description,
		"topic":       d.Topic,
		"steps":       steps,
	}
}
