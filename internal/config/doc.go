// Package config loads shipyard server configuration.
//
// Configuration lives in shipyard.yaml. Every field is optional; Default
// supplies the rest, and a few environment variables override the file so
// that containers can be configured without one.
//
// # File Structure
//
//	host: 0.0.0.0
//	port: 3000
//	staticDir: public
//	shutdownTimeout: 30s
//	compress: true
//	corsOrigins: ["https://app.example.com"]
//	stream:
//	  chunkSize: 4096
//	  buffer: 1
//	actions:
//	  manifest: actions.yaml
//	  maxBodyBytes: 33554432
//	  allowedTypes: ["image/*"]
//	uploads:
//	  backend: s3
//	  s3:
//	    bucket: shipyard-uploads
//	    region: us-east-1
//	ships:
//	  backend: redis
//	  redisAddr: localhost:6379
//	log:
//	  level: info
//	  format: json
//
// # Environment
//
// PORT, SHIPYARD_HOST, SHIPYARD_STATIC_DIR, SHIPYARD_SHUTDOWN_TIMEOUT,
// SHIPYARD_MANIFEST, SHIPYARD_UPLOADS_BACKEND, SHIPYARD_UPLOADS_DIR,
// SHIPYARD_S3_BUCKET, SHIPYARD_S3_REGION, SHIPYARD_S3_ENDPOINT,
// SHIPYARD_S3_ACCESS_KEY, SHIPYARD_S3_SECRET_KEY, SHIPYARD_SHIPS_BACKEND,
// SHIPYARD_REDIS_ADDR, SHIPYARD_LOG_LEVEL and SHIPYARD_LOG_FORMAT.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println("Listening on", cfg.Address())
package config
