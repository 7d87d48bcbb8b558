package interview

import (
	"gorm.io/datatypes"

	"hireLoop/internal/database"
)

func answersValue(a []database.AnswerRecord) datatypes.JSONSlice[database.AnswerRecord] {
	return datatypes.JSONSlice[database.AnswerRecord](a)
}

func feedbackValue(fb *database.Feedback) datatypes.JSONType[*database.Feedback] {
	return datatypes.NewJSONType(fb)
}
