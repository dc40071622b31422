package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/qdata"
	"github.com/trezcool/quizbank/core/question"
)

type (
	QuestionRequest struct {
		Question qdata.Mapping `json:"question"`
	}

	CloneRequest struct {
		BankID int64 `json:"bank_id"`
	}

	TranslateLinksRequest struct {
		IDs []int64 `json:"ids"`
	}

	TranslateLinksResponse struct {
		Translated int `json:"translated"`
	}

	// QuestionResponse is a question record with its client payload view.
	QuestionResponse struct {
		ID            int64         `json:"id"`
		BankID        int64         `json:"assessment_question_bank_id"`
		Name          string        `json:"name"`
		Position      int           `json:"position"`
		WorkflowState string        `json:"workflow_state"`
		Data          qdata.Mapping `json:"question_data"`
		CreatedAt     time.Time     `json:"created_at"`
		UpdatedAt     time.Time     `json:"updated_at"`
	}
)

type questionApi struct {
	svc *question.Service
}

func registerQuestionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *question.Service) {
	api := questionApi{svc: svc}

	bg := g.Group("/banks", jwt)
	bg.POST("", api.createBank, permissionMiddleware(question.ActionCreate))
	bg.GET("/:bankID", api.retrieveBank, permissionMiddleware(question.ActionRead))
	bg.GET("/:bankID/questions", api.query, permissionMiddleware(question.ActionRead))
	bg.POST("/:bankID/questions", api.create, permissionMiddleware(question.ActionCreate))

	qg := g.Group("/questions", jwt)
	qg.POST("/translate-links", api.translateLinks, permissionMiddleware(question.ActionUpdate))
	qg.GET("/:id", api.retrieve, permissionMiddleware(question.ActionRead))
	qg.PUT("/:id", api.update, permissionMiddleware(question.ActionUpdate))
	qg.DELETE("/:id", api.destroy, permissionMiddleware(question.ActionDelete))
	qg.POST("/:id/independently-edited", api.markIndependentlyEdited, permissionMiddleware(question.ActionUpdate))
	qg.POST("/:id/clone", api.clone, permissionMiddleware(question.ActionCreate))
}

func (api *questionApi) response(q question.Question) QuestionResponse {
	return QuestionResponse{
		ID:            q.ID,
		BankID:        q.BankID,
		Name:          q.Name,
		Position:      q.Position,
		WorkflowState: q.WorkflowState,
		Data:          api.svc.DataView(q),
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// Handlers

func (api *questionApi) createBank(ctx echo.Context) error {
	var data question.NewBank
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBank")
	}

	bank, err := api.svc.CreateBank(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question bank")
	}
	return ctx.JSON(http.StatusCreated, bank)
}

func (api *questionApi) retrieveBank(ctx echo.Context) error {
	bankID, err := idParam(ctx, "bankID")
	if err != nil {
		return err
	}
	bank, err := api.svc.GetBank(ctx.Request().Context(), bankID)
	if err != nil {
		return errors.Wrap(err, "getting question bank")
	}
	return ctx.JSON(http.StatusOK, bank)
}

func (api *questionApi) query(ctx echo.Context) error {
	bankID, err := idParam(ctx, "bankID")
	if err != nil {
		return err
	}
	if _, err = api.svc.GetBank(ctx.Request().Context(), bankID); err != nil {
		return errors.Wrap(err, "getting question bank")
	}

	filter, err := bindQuestionFilter(ctx, bankID)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	questions, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	res := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		res = append(res, api.response(q))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *questionApi) create(ctx echo.Context) error {
	bankID, err := idParam(ctx, "bankID")
	if err != nil {
		return err
	}
	var data QuestionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuestionRequest")
	}

	q, err := api.svc.Create(ctx.Request().Context(), question.NewQuestion{BankID: bankID, Data: data.Question})
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, api.response(q))
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	q, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting question")
	}
	return ctx.JSON(http.StatusOK, api.response(q))
}

func (api *questionApi) update(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data QuestionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuestionRequest")
	}

	q, err := api.svc.Update(ctx.Request().Context(), id, question.UpdateQuestion{Data: data.Question})
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, api.response(q))
}

func (api *questionApi) destroy(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *questionApi) markIndependentlyEdited(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	q, err := api.svc.MarkIndependentlyEdited(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "marking question as independently edited")
	}
	return ctx.JSON(http.StatusOK, api.response(q))
}

func (api *questionApi) clone(ctx echo.Context) error {
	id, err := idParam(ctx, "id")
	if err != nil {
		return err
	}
	var data CloneRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CloneRequest")
	}
	if data.BankID == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "bank_id", Error: "this field is required"})
	}

	q, err := api.svc.CloneToBank(ctx.Request().Context(), id, data.BankID)
	if err != nil {
		return errors.Wrap(err, "cloning question")
	}
	return ctx.JSON(http.StatusCreated, api.response(q))
}

func (api *questionApi) translateLinks(ctx echo.Context) error {
	var data TranslateLinksRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TranslateLinksRequest")
	}
	if len(data.IDs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "ids", Error: "this field is required"})
	}

	n, err := api.svc.TranslateLinksByIDs(ctx.Request().Context(), data.IDs...)
	if err != nil {
		return errors.Wrap(err, "translating question links")
	}
	return ctx.JSON(http.StatusOK, TranslateLinksResponse{Translated: n})
}
