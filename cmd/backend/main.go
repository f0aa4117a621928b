// Package main is the entry point for the secure multi-container backend.
//
// @title          Secure Multi-Container Backend API
// @version        1.0
// @description    Backend bootstrap service: one public banner route plus admin health and readiness endpoints.
// @host           localhost:5000
// @BasePath       /
// @schemes        http
package main

func main() {
	Execute()
}
