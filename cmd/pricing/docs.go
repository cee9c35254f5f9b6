package main

//go:generate swag init -g cmd/pricing/main.go -o docs

// @title           Pricing API
// @version         0.1.0
// @description     Price suggestions, feedback, model status and monitoring metrics.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
