package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/consensus"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/propagation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store/local"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/testhelpers"
)

var router *gin.Engine

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Server Suite")
}

func post(url string, body interface{}) *http.Response {
	b, err := json.Marshal(body)
	Ω(err).Should(BeNil())
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	Ω(err).Should(BeNil())
	return res
}

var _ = Describe("Annotation API", Ordered, func() {

	const base = "http://localhost:9999"

	var _ = BeforeAll(func() {
		gin.SetMode(gin.TestMode)
		_, router = gin.CreateTestContext(httptest.NewRecorder())

		ctx := context.Background()
		db := local.New()
		Ω(db.PutDocuments(ctx,
			testhelpers.Document("geo", "d1", "France has its capital at Paris"),
			testhelpers.Document("geo", "d2", "We know France has its capital at Paris today"),
		)).Should(BeNil())
		Ω(db.Commit(ctx, annotation.Changeset{
			CreatedEntities: []annotation.Entity{place("a1", "d1", "alice", 0, "France")},
		})).Should(BeNil())

		s := server{controller: newController(db, db, propagation.Planner{}, annotation.TaskEntitiesAndRelations, consensus.GoldOptions{})}
		s.RegisterRoutes(router)

		go router.Run("localhost:9999")

		// wait for server to start
		time.Sleep(1 * time.Second)
	})

	var _ = Describe("Status codes", func() {

		var _ = It("Should be healthy", func() {
			res, err := http.Get(base + "/health")

			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusOK))
		})

		var _ = It("Should serve metrics", func() {
			res, err := http.Get(base + "/metrics")

			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusOK))
		})

		var _ = It("Should be not found for an unknown document", func() {
			res, err := http.Get(base + "/documents/missing/agreement")

			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusNotFound))
		})

		var _ = It("Should be not found before a document is saved", func() {
			res, err := http.Get(base + "/documents/d2/score")

			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusNotFound))
		})

		var _ = It("Should be a bad request when no annotator saves", func() {
			res := post(base+"/documents/d1/save", saveRequest{})

			Ω(res.StatusCode).Should(Equal(http.StatusBadRequest))
		})

		var _ = It("Should be a bad request for an invalid threshold", func() {
			res, err := http.Get(base + "/projects/geo/gold?threshold=2")

			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusBadRequest))
		})

		var _ = It("Should be a bad request for an unknown action", func() {
			res := post(base+"/propagate/entity", map[string]interface{}{
				"action":    "merge",
				"projectId": "geo",
				"focus":     map[string]interface{}{"documentId": "d1", "annotatorId": "alice", "start": 0, "end": 0, "labelId": "LOC"},
			})

			Ω(res.StatusCode).Should(Equal(http.StatusBadRequest))
		})

		var _ = It("Should be a conflict when a relation endpoint does not exist", func() {
			res := post(base+"/propagate/relation", map[string]interface{}{
				"action":    "apply",
				"projectId": "geo",
				"focus": map[string]interface{}{
					"documentId":      "d1",
					"annotatorId":     "alice",
					"sourceEntityId":  "missing",
					"target":          map[string]interface{}{"start": 5, "end": 5, "labelId": "LOC"},
					"relationLabelId": "CAPITAL",
				},
			})

			Ω(res.StatusCode).Should(Equal(http.StatusConflict))
		})
	})

	var _ = Describe("Annotating", func() {

		var _ = It("Should save and score a document", func() {
			res := post(base+"/documents/d1/save", saveRequest{AnnotatorID: "alice"})
			Ω(res.StatusCode).Should(Equal(http.StatusOK))

			res, err := http.Get(base + "/documents/d1/score")
			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusOK))

			var score annotation.AgreementScore
			Ω(json.NewDecoder(res.Body).Decode(&score)).Should(BeNil())
			Ω(score.Overall).Should(Equal(100.0))
		})

		var _ = It("Should propagate an entity across the project", func() {
			res := post(base+"/propagate/entity", map[string]interface{}{
				"action":    "apply",
				"projectId": "geo",
				"focus":     map[string]interface{}{"documentId": "d1", "annotatorId": "alice", "start": 5, "end": 5, "labelId": "LOC"},
			})
			Ω(res.StatusCode).Should(Equal(http.StatusOK))

			var result propagation.Result
			Ω(json.NewDecoder(res.Body).Decode(&result)).Should(BeNil())
			Ω(result.Action).Should(Equal(propagation.Apply))
			Ω(result.CreatedEntities).Should(HaveLen(2))
			Ω(result.AffectedDocumentIDs).Should(Equal([]string{"d1", "d2"}))
		})

		var _ = It("Should return the consensus of a document", func() {
			res, err := http.Get(base + "/documents/d1/consensus?annotator=alice")
			Ω(err).Should(BeNil())
			Ω(res.StatusCode).Should(Equal(http.StatusOK))

			var gold consensus.Gold
			Ω(json.NewDecoder(res.Body).Decode(&gold)).Should(BeNil())
			Ω(gold.Annotators).Should(Equal([]string{"alice"}))
			Ω(gold.Entities).Should(HaveLen(2))
		})
	})
})
