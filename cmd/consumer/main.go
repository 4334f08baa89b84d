package main

import (
	"github.com/orderlab/oms/internal/consumer/app"
	"github.com/orderlab/oms/internal/consumer/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
