package main

import "github.com/shouni/go-news-scraper/cmd"

func main() {
	cmd.Execute()
}
