package main

import (
	"github.com/orderlab/oms/internal/order/app"
	"github.com/orderlab/oms/internal/order/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
