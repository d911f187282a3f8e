// Package main is the entry point for opgate.
//
//	@title						opgate
//	@version					1.0
//	@description				Named queries and mutations over HTTP with per-operation middleware.
//
//	@BasePath					/api
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				API key issued by regenerateApiKey
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Identity token (format: "Bearer {token}")
package main

func main() {
	Execute()
}
