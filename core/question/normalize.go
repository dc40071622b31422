package question

import (
	"strconv"

	"github.com/trezcool/quizbank/core/qdata"
)

// AllowedFields is the fixed set of payload fields kept by ParseQuestion.
var AllowedFields = []string{
	"id",
	"regrade_option",
	"points_possible",
	"correct_comments",
	"incorrect_comments",
	"neutral_comments",
	"question_type",
	"question_name",
	"question_text",
	"answers",
	"formulas",
	"variables",
	"answer_tolerance",
	"formula_decimal_places",
	"matching_answer_incorrect_matches",
	"matches",
	"correct_comments_html",
	"incorrect_comments_html",
	"neutral_comments_html",
}

// comment tiers: html key, plain text key
var commentPairs = [][2]string{
	{"correct_comments_html", "correct_comments"},
	{"incorrect_comments_html", "incorrect_comments"},
	{"neutral_comments_html", "neutral_comments"},
}

// Merge overlays the non-null fields of update onto a copy of prior and keeps only
// the keys listed in allow. Neither input is modified.
func Merge(prior, update qdata.Mapping, allow []string) qdata.Mapping {
	merged := prior.Clone()
	for k, v := range update {
		if isNull(v) {
			continue
		}
		merged[k] = qdata.Clone(v)
	}

	res := make(qdata.Mapping, len(allow))
	for _, k := range allow {
		if v, ok := merged[k]; ok {
			res[k] = v
		}
	}
	return res
}

// ParseQuestion turns a submitted form into the payload to persist, on top of the
// payload of prior when editing an existing question.
func ParseQuestion(form qdata.Mapping, prior *Question) qdata.Mapping {
	form = form.Clone()
	if v, ok := form["question_name"]; !ok || isNull(v) {
		if name, ok := form["name"]; ok {
			form["question_name"] = name
		}
	}

	var previous qdata.Mapping
	if prior != nil {
		previous = prior.Data
	}
	data := Merge(previous, form, AllowedFields)

	// a blank html comment sent alongside a blank plain comment clears the plain one
	for _, pair := range commentPairs {
		html, plain := pair[0], pair[1]
		if v, supplied := form[html]; supplied && qdata.IsBlank(v) && qdata.IsBlank(form[plain]) {
			data.Delete(plain)
		}
	}

	if prior != nil && prior.ID != 0 {
		data.Set("assessment_question_id", qdata.Number(strconv.FormatInt(prior.ID, 10)))
	}
	return data
}

func isNull(v qdata.Value) bool {
	_, null := v.(qdata.Null)
	return v == nil || null
}
