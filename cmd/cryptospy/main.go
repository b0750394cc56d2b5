package main

import (
	"oi-volume-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
