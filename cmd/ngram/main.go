package main

import "github.com/praballama89182-collab/NGRAM/internal/cli"

func main() {
	cli.Execute()
}
