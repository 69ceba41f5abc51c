package configkey

const (
	LogLevel      = "log.level"
	DebugMode     = "debug"
	RequestLogger = "request.logger"
	HTTPPort      = "http.port"

	DatabaseUsername = "database.username"
	DatabaseDatabase = "database.database"
	DatabaseHost     = "database.host"
	DatabasePort     = "database.port"
	DatabaseSSLMode  = "database.sslmode"
	DatabaseTimezone = "database.timezone"
	DatabasePassword = "database.password"

	StorageType   = "storage.type"
	StorageFSPath = "storage.fs.path"

	S3Bucket    = "storage.s3.bucket"
	S3Region    = "storage.s3.region"
	S3AccessKey = "storage.s3.access.key"
	S3SecretKey = "storage.s3.secret.key"
	S3Endpoint  = "storage.s3.endpoint"
	S3Secure    = "storage.s3.secure"
	S3PathStyle = "storage.s3.path.style"

	JWTSecret     = "auth.jwt.secret"
	JWTExpiration = "auth.jwt.expiration"
	BcryptCost    = "auth.bcrypt.cost"

	RevocationPurgeSchedule = "auth.revocation.purge.schedule"

	BootstrapAdminUsername = "bootstrap.admin.username"
	BootstrapAdminPassword = "bootstrap.admin.password"

	MetricsEnabled = "metrics.enabled"
)
