package main

import (
	"notedraft/cmd/handlers"
	"notedraft/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
