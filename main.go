package main

import (
	_ "git.thicket.social/thicket/thicket/src/migration"
	"git.thicket.social/thicket/thicket/src/service"
)

func main() {
	service.ServiceCommand.Execute()
}
