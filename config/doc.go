/*
Package config loads gateway settings from defaults, an optional YAML file,
a dotenv file and the environment.

Environment variables use the STORAGEGATEWAY_ prefix with dots replaced by
underscores, for example STORAGEGATEWAY_TABLE_BACKEND=memory. The usual AWS
variables (AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY) are honoured
as well.

Example file:

	table:
	  backend: dynamodb
	  name: Users
	blob:
	  backend: minio
	  container: test-container
	minio:
	  endpoint: localhost:9000
	log:
	  level: debug
	  format: json
*/
package config
