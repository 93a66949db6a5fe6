package main

import (
	"github.com/shopfabrik/payment-svc/internal/app"
	"github.com/shopfabrik/payment-svc/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
