package main

import (
	"log"

	_ "github.com/anoixa/image-gallery/docs"

	"github.com/anoixa/image-gallery/config"

	"github.com/anoixa/image-gallery/cmd"
)

func main() {
	log.Printf("image gallery %s", config.BuildString())
	cmd.Execute()
}
