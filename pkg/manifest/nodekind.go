package manifest

// PipelineNodeType is the closed enumeration of node kinds, partitioned into
// sources (in-*), a single processor kind (processor-wasm), and sinks (out-*).
type PipelineNodeType string

const (
	// Sources — cloud storage.
	NodeInAwsS3      PipelineNodeType = "in-aws-s3"
	NodeInGoogleGcs  PipelineNodeType = "in-google-gcs"
	NodeInAzureBlob  PipelineNodeType = "in-azure-blob"

	// Sources — databases.
	NodeInPostgresql PipelineNodeType = "in-postgresql"
	NodeInMongodb    PipelineNodeType = "in-mongodb"
	NodeInMysql      PipelineNodeType = "in-mysql"
	NodeInSqlite     PipelineNodeType = "in-sqlite"

	// Sources — streaming.
	NodeInKafka    PipelineNodeType = "in-kafka"
	NodeInNats     PipelineNodeType = "in-nats"
	NodeInRabbitmq PipelineNodeType = "in-rabbitmq"
	NodeInRedis    PipelineNodeType = "in-redis"

	// Sources — web/API.
	NodeInHTTPWebhook   PipelineNodeType = "in-http-webhook"
	NodeInHTTPPoller    PipelineNodeType = "in-http-poller"
	NodeInGraphqlPoller PipelineNodeType = "in-graphql-poller"
	NodeInRssReader     PipelineNodeType = "in-rss-reader"

	// Sources — cloud services.
	NodeInGooglePubsub PipelineNodeType = "in-google-pubsub"
	NodeInAwsKinesis   PipelineNodeType = "in-aws-kinesis"
	NodeInStripe       PipelineNodeType = "in-stripe"
	NodeInGithubWebhook PipelineNodeType = "in-github-webhook"

	// Processor.
	NodeProcessorWasm PipelineNodeType = "processor-wasm"

	// Sinks — databases.
	NodeOutPostgresql PipelineNodeType = "out-postgresql"
	NodeOutMongodb    PipelineNodeType = "out-mongodb"
	NodeOutMysql      PipelineNodeType = "out-mysql"
	NodeOutRedis      PipelineNodeType = "out-redis"

	// Sinks — cloud storage.
	NodeOutAwsS3     PipelineNodeType = "out-aws-s3"
	NodeOutGoogleGcs PipelineNodeType = "out-google-gcs"
	NodeOutAzureBlob PipelineNodeType = "out-azure-blob"

	// Sinks — streaming/queues.
	NodeOutKafka       PipelineNodeType = "out-kafka"
	NodeOutNats        PipelineNodeType = "out-nats"
	NodeOutRabbitmq    PipelineNodeType = "out-rabbitmq"
	NodeOutGooglePubsub PipelineNodeType = "out-google-pubsub"

	// Sinks — web/API.
	NodeOutHTTPPost        PipelineNodeType = "out-http-post"
	NodeOutGraphqlMutation PipelineNodeType = "out-graphql-mutation"
	NodeOutSlack           PipelineNodeType = "out-slack"
	NodeOutTwilioSms       PipelineNodeType = "out-twilio-sms"
	NodeOutWebhook         PipelineNodeType = "out-webhook"
	NodeOutHTTPWebhook     PipelineNodeType = "out-http-webhook"

	// Sinks — observability.
	NodeOutPrometheus   PipelineNodeType = "out-prometheus"
	NodeOutLoki         PipelineNodeType = "out-loki"
	NodeOutElasticsearch PipelineNodeType = "out-elasticsearch"
	NodeOutInfluxdb     PipelineNodeType = "out-influxdb"
	NodeOutLog          PipelineNodeType = "out-log"

	// Sinks — cloud integrations.
	NodeOutGoogleBigquery PipelineNodeType = "out-google-bigquery"
	NodeOutSnowflake      PipelineNodeType = "out-snowflake"
	NodeOutAwsLambda      PipelineNodeType = "out-aws-lambda"
)

// validNodeTypes is the closed set behind Valid. The compiler checks it
// before the node builder registry lookup, so a kind outside the enumeration
// gets a different CompileError{unknownKind} message from a kind that is
// recognized but has no builder. Parsing a pipeline does not check it.
var validNodeTypes = map[PipelineNodeType]bool{
	NodeInAwsS3: true, NodeInGoogleGcs: true, NodeInAzureBlob: true,
	NodeInPostgresql: true, NodeInMongodb: true, NodeInMysql: true, NodeInSqlite: true,
	NodeInKafka: true, NodeInNats: true, NodeInRabbitmq: true, NodeInRedis: true,
	NodeInHTTPWebhook: true, NodeInHTTPPoller: true, NodeInGraphqlPoller: true, NodeInRssReader: true,
	NodeInGooglePubsub: true, NodeInAwsKinesis: true, NodeInStripe: true, NodeInGithubWebhook: true,
	NodeProcessorWasm: true,
	NodeOutPostgresql: true, NodeOutMongodb: true, NodeOutMysql: true, NodeOutRedis: true,
	NodeOutAwsS3: true, NodeOutGoogleGcs: true, NodeOutAzureBlob: true,
	NodeOutKafka: true, NodeOutNats: true, NodeOutRabbitmq: true, NodeOutGooglePubsub: true,
	NodeOutHTTPPost: true, NodeOutGraphqlMutation: true, NodeOutSlack: true, NodeOutTwilioSms: true,
	NodeOutWebhook: true, NodeOutHTTPWebhook: true,
	NodeOutPrometheus: true, NodeOutLoki: true, NodeOutElasticsearch: true, NodeOutInfluxdb: true, NodeOutLog: true,
	NodeOutGoogleBigquery: true, NodeOutSnowflake: true, NodeOutAwsLambda: true,
}

// Valid reports whether t is a member of the closed node-kind enumeration.
func (t PipelineNodeType) Valid() bool {
	return validNodeTypes[t]
}
