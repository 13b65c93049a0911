package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Quiz is looked up by slug and listed newest first.
type Quiz struct {
	MongoID      string         `json:"mongo_id,omitempty"`
	Slug         string         `json:"slug" binding:"required"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	RoadmapTitle string         `json:"roadmap_title,omitempty"`
	Questions    []QuizQuestion `json:"questions"`
	CreatedAt    time.Time      `json:"created_at"`
}

type QuizQuestion struct {
	Prompt      string   `bson:"prompt" json:"prompt"`
	Options     []string `bson:"options" json:"options"`
	AnswerIndex int      `bson:"answer_index" json:"answer_index"`
	Explanation string   `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

type QuizDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Slug         string             `bson:"slug"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description,omitempty"`
	RoadmapTitle string             `bson:"roadmap_title,omitempty"`
	Questions    []QuizQuestion     `bson:"questions"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (q Quiz) ToDocument() QuizDocument {
	return QuizDocument{
		Slug:         q.Slug,
		Title:        q.Title,
		Description:  q.Description,
		RoadmapTitle: q.RoadmapTitle,
		Questions:    q.Questions,
		CreatedAt:    q.CreatedAt,
	}
}

func QuizFromDocument(d QuizDocument) Quiz {
	return Quiz{
		MongoID:      hexID(d.ID),
		Slug:         d.Slug,
		Title:        d.Title,
		Description:  d.Description,
		RoadmapTitle: d.RoadmapTitle,
		Questions:    d.Questions,
		CreatedAt:    d.CreatedAt,
	}
}

func (d QuizDocument) UpdateFields() bson.M {
	questions := d.Questions
	if questions == nil {
		questions = []QuizQuestion{}
	}
	return bson.M{
		"slug":          d.Slug,
		"title":         d.Title,
		"description":   d.Description,
		"roadmap_title": d.RoadmapTitle,
		"questions":     questions,
	}
}
