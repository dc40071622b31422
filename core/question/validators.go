package question

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/qdata"
)

var (
	questionTypeTag  = "question_type"
	questionTypeText = "unsupported question type"
)

// RegisterValidators adds the question validations to validate.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(questionTypeTag, questionTypeValidation)
	validate.RegisterStructValidation(formStructValidation, NewQuestion{}, UpdateQuestion{})
	core.RegisterCustomTranslation(validate, translator, questionTypeTag, questionTypeText)
}

// questionTypeValidation checks a string field against AllQuestionTypes.
func questionTypeValidation(fl validator.FieldLevel) bool {
	if typ, ok := fl.Field().Interface().(string); ok {
		return IsQuestionType(typ)
	}
	return false
}

// formStructValidation checks the question_type of submitted payloads, when one is given.
func formStructValidation(sl validator.StructLevel) {
	var data qdata.Mapping
	switch form := sl.Current().Interface().(type) {
	case NewQuestion:
		data = form.Data
	case UpdateQuestion:
		data = form.Data
	}

	v, ok := data["question_type"]
	if !ok || isNull(v) {
		return
	}
	if typ, isString := v.(qdata.String); !isString || !IsQuestionType(string(typ)) {
		sl.ReportError(v, "question_type", "QuestionType", questionTypeTag, "")
	}
}
