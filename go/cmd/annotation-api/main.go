package main

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/consensus"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/propagation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store/local"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store/remote"
)

// config structure
type annotationAPIConfig struct {
	lib.BaseConfig `mapstructure:",squash"`
	Server         struct {
		HttpPort int `mapstructure:"http_port"`
	}
	Backend         store.Type
	DocumentBackend store.Type `mapstructure:"document_backend"`
	Redis           remote.RedisConfig
	Elasticsearch   remote.ElasticsearchConfig
	BlocklistPath   string `mapstructure:"blocklist_path"`
	Task            annotation.Task
	Consensus       struct {
		GoldThreshold    float64 `mapstructure:"gold_threshold"`
		AnnotatorsPerDoc int     `mapstructure:"annotators_per_doc"`
	}
	Ontology struct {
		EntityLabels   []string `mapstructure:"entity_labels"`
		RelationLabels []string `mapstructure:"relation_labels"`
	}
}

var config annotationAPIConfig

// defaultConfig runs against a local redis. The local backends keep annotations in
// memory only and have no way to load documents, so they are for tests.
var defaultConfig = map[string]interface{}{
	"server": map[string]interface{}{
		"http_port": 8080,
	},
	"backend":          store.Redis,
	"document_backend": store.Redis,
	"redis": map[string]interface{}{
		"host": "localhost",
		"port": 6379,
	},
	"elasticsearch": map[string]interface{}{
		"host":          "localhost",
		"port":          9200,
		"index":         "documents",
		"max_documents": 10000,
	},
	"task": annotation.TaskEntities,
	"consensus": map[string]interface{}{
		"gold_threshold":     consensus.DefaultGoldThreshold,
		"annotators_per_doc": 1,
	},
}

func initConfig() {
	err := lib.InitializeConfig("./config/annotation-api.yml", lib.BaseDefaults(defaultConfig), &config)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}

// openStores returns the configured backends. A local annotation backend is
// shared with a local document backend so both see the same corpus.
func openStores(conf annotationAPIConfig) (store.DocumentStore, store.AnnotationRepository, error) {
	var annotations store.AnnotationRepository
	var localStore *local.Store
	switch conf.Backend {
	case store.Local:
		localStore = local.New()
		annotations = localStore
	case store.Redis:
		annotations = remote.NewRedisStore(conf.Redis)
	default:
		return nil, nil, errors.Errorf("invalid annotation backend %q", conf.Backend)
	}

	switch conf.DocumentBackend {
	case store.Local:
		if localStore == nil {
			return nil, nil, errors.New("a local document backend needs a local annotation backend")
		}
		return localStore, annotations, nil
	case store.Redis:
		return remote.NewRedisStore(conf.Redis), annotations, nil
	case store.Elasticsearch:
		documents, err := remote.NewElasticsearchStore(conf.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		return documents, annotations, nil
	default:
		return nil, nil, errors.Errorf("invalid document backend %q", conf.DocumentBackend)
	}
}

func main() {
	initConfig()

	switch config.Task {
	case annotation.TaskEntities, annotation.TaskEntitiesAndRelations:
	default:
		log.Fatal().Str("task", string(config.Task)).Msg("invalid task")
	}

	documents, annotations, err := openStores(config)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
	for !documents.Ready() || !annotations.Ready() {
		log.Info().Msg("backend is not ready, waiting...")
		time.Sleep(10 * time.Second)
	}

	var bl *blocklist.Blocklist
	if config.BlocklistPath != "" {
		if bl, err = blocklist.Load(config.BlocklistPath); err != nil {
			log.Fatal().Err(err).Send()
		}
	}

	planner := propagation.Planner{
		Ontology:  annotation.NewOntology(config.Ontology.EntityLabels, config.Ontology.RelationLabels),
		Blocklist: bl,
	}
	gold := consensus.GoldOptions{
		Threshold:        config.Consensus.GoldThreshold,
		AnnotatorsPerDoc: config.Consensus.AnnotatorsPerDoc,
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(lib.JsonLogFormatter), gin.Recovery())
	s := server{controller: newController(documents, annotations, planner, config.Task, gold)}
	s.RegisterRoutes(r)

	log.Info().Int("port", config.Server.HttpPort).Str("task", string(config.Task)).Msg("starting annotation api")
	if err := r.Run(fmt.Sprintf(":%d", config.Server.HttpPort)); err != nil {
		log.Fatal().Err(err).Send()
	}
}
