package main

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/consensus"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/propagation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

type HttpError struct {
	code int
	error
}

func (e HttpError) Error() string {
	return e.error.Error()
}

func (e HttpError) Unwrap() error {
	return e.error
}

func NewHttpError(code int, err error) HttpError {
	return HttpError{
		code:  code,
		error: err,
	}
}

type server struct {
	controller controller
}

type saveRequest struct {
	AnnotatorID string `json:"annotatorId"`
}

type entityPropagationRequest struct {
	Action    string                  `json:"action"`
	ProjectID string                  `json:"projectId"`
	Focus     propagation.EntityFocus `json:"focus"`
}

type relationPropagationRequest struct {
	Action    string                    `json:"action"`
	ProjectID string                    `json:"projectId"`
	Focus     propagation.RelationFocus `json:"focus"`
}

func (s server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	documents := r.Group("/documents/:id")
	documents.GET("/agreement", s.Agreement)
	documents.GET("/score", s.Score)
	documents.POST("/save", s.Save)
	documents.GET("/consensus", s.Consensus)

	r.GET("/projects/:id/gold", s.Gold)

	propagate := r.Group("/propagate")
	propagate.POST("/entity", s.PropagateEntity)
	propagate.POST("/relation", s.PropagateRelation)
}

func (s server) Health(c *gin.Context) {
	if !s.controller.documents.Ready() || !s.controller.annotations.Ready() {
		abort(c, 503, errors.New("backend is not ready"))
		return
	}
	c.JSON(200, map[string]interface{}{"status": 200})
}

func (s server) Agreement(c *gin.Context) {
	score, err := s.controller.ComputeIAA(c.Request.Context(), c.Param("id"), c.QueryArray("annotator"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, score)
}

func (s server) Score(c *gin.Context) {
	score, err := s.controller.GetScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, score)
}

func (s server) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, NewHttpError(400, errors.Wrap(err, "invalid request body")))
		return
	}
	score, err := s.controller.SaveDocument(c.Request.Context(), c.Param("id"), req.AnnotatorID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, score)
}

func (s server) Consensus(c *gin.Context) {
	matchSuggested := c.Query("matchSuggested") == "true"
	gold, err := s.controller.Consensus(c.Request.Context(), c.Param("id"), c.QueryArray("annotator"), matchSuggested)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, gold)
}

func (s server) Gold(c *gin.Context) {
	var options consensus.GoldOptions
	if threshold, ok := c.GetQuery("threshold"); ok {
		v, err := strconv.ParseFloat(threshold, 64)
		if err != nil || v <= 0 || v > 1 {
			handleError(c, NewHttpError(400, errors.Errorf("invalid threshold %q - must be in (0, 1]", threshold)))
			return
		}
		options.Threshold = v
	}
	if annotatorsPerDoc, ok := c.GetQuery("annotatorsPerDoc"); ok {
		v, err := strconv.Atoi(annotatorsPerDoc)
		if err != nil || v < 1 {
			handleError(c, NewHttpError(400, errors.Errorf("invalid annotatorsPerDoc %q", annotatorsPerDoc)))
			return
		}
		options.AnnotatorsPerDoc = v
	}

	gold, err := s.controller.ExportGold(c.Request.Context(), c.Param("id"), options)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, gold)
}

func (s server) PropagateEntity(c *gin.Context) {
	var req entityPropagationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, NewHttpError(400, errors.Wrap(err, "invalid request body")))
		return
	}
	s.propagate(c, req.Action, req.Focus, req.ProjectID)
}

func (s server) PropagateRelation(c *gin.Context) {
	var req relationPropagationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, NewHttpError(400, errors.Wrap(err, "invalid request body")))
		return
	}
	s.propagate(c, req.Action, req.Focus, req.ProjectID)
}

func (s server) propagate(c *gin.Context, rawAction string, focus propagation.Focus, projectID string) {
	action, err := propagation.ParseAction(rawAction)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := s.controller.Propagate(c.Request.Context(), action, focus, projectID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(200, result)
}

// handleError maps engine and store errors onto status codes.
func handleError(c *gin.Context, err error) {
	if err == nil {
		abort(c, 500, errors.New("abort called on nil error"))
		return
	}
	var httpError HttpError
	switch {
	case errors.As(err, &httpError):
		abort(c, httpError.code, err)
	case errors.Is(err, store.ErrNotFound):
		abort(c, 404, err)
	case annotation.IsValidationError(err):
		abort(c, 400, err)
	case errors.Is(err, annotation.ErrIntegrity):
		abort(c, 409, err)
	default:
		abort(c, 500, err)
	}
}

func abort(c *gin.Context, code int, err error) {
	switch {
	case code <= 503:
		c.JSON(code, map[string]interface{}{
			"status":  code,
			"message": err.Error(),
		})
		c.Abort()
	default:
		_ = c.AbortWithError(code, err)
	}
}
