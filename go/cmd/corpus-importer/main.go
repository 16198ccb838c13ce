package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store/remote"
)

// config structure
type corpusImporterConfig struct {
	lib.BaseConfig `mapstructure:",squash"`
	Corpus         struct {
		Path      string
		ProjectID string `mapstructure:"project_id"`
		Format    CorpusFormat
	}
	DocumentBackend store.Type `mapstructure:"document_backend"`
	PipelineSize    int        `mapstructure:"pipeline_size"`
	Redis           remote.RedisConfig
	Elasticsearch   remote.ElasticsearchConfig
}

var config corpusImporterConfig

func initConfig() {
	// initialise config with defaults.
	err := lib.InitializeConfig("./config/corpus-importer.yml", lib.BaseDefaults(map[string]interface{}{
		"document_backend": store.Redis,
		"pipeline_size":    500,
		"corpus": map[string]interface{}{
			"path":       "./corpus",
			"project_id": "default",
			"format":     TextCorpusFormat,
		},
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
	}), &config)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}

func main() {
	initConfig()

	var documents store.DocumentStore
	var err error
	switch config.DocumentBackend {
	case store.Redis:
		documents = remote.NewRedisStore(config.Redis)
	case store.Elasticsearch:
		documents, err = remote.NewElasticsearchStore(config.Elasticsearch)
		if err != nil {
			log.Fatal().Err(err).Send()
		}
	default:
		log.Fatal().Str("document_backend", string(config.DocumentBackend)).Msg("invalid document backend")
	}

	for !documents.Ready() {
		log.Info().Msg("database is not ready, waiting...")
		time.Sleep(10 * time.Second)
	}

	ctx, cancel := lib.InterruptContext(context.Background())
	defer cancel()

	im := importer{
		documents: documents,
		projectID: config.Corpus.ProjectID,
		format:    config.Corpus.Format,
		batchSize: config.PipelineSize,
	}
	start := time.Now()
	n, err := im.Import(ctx, config.Corpus.Path)
	if err != nil {
		log.Fatal().Err(err).Int("documents", n).Send()
	}
	log.Info().Int("documents", n).Dur("took", time.Since(start)).Str("project_id", config.Corpus.ProjectID).Msg("import complete")
}
