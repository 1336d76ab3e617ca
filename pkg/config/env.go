package config

const (
	EnvPrefix = "FREIGHT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "FREIGHT_APP_ENV"
	EnvPort     = "FREIGHT_APP_PORT"
	EnvDBDSN    = "FREIGHT_DB_DSN"
	EnvDBHost   = "FREIGHT_DB_HOST"
	EnvDBUser   = "FREIGHT_DB_USER"
	EnvDBName   = "FREIGHT_DB_NAME"
	EnvRedisURL = "FREIGHT_REDIS_URL"

	EnvJWTSecret = "FREIGHT_JWT_SECRET"
	EnvJWTIssuer = "FREIGHT_JWT_ISSUER"

	EnvGCPProjectID = "FREIGHT_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "FREIGHT_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "FREIGHT_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvGoogleMapsAPIKey         = "FREIGHT_GOOGLE_MAPS_API_KEY"
	EnvGoogleMapsGeocodeSpacing = "FREIGHT_GOOGLE_MAPS_GEOCODE_SPACING"
	EnvDispatchFleetTopN        = "FREIGHT_DISPATCH_FLEET_TOP_N"
	EnvCronBackfillSchedule     = "FREIGHT_CRON_BACKFILL_SCHEDULE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
