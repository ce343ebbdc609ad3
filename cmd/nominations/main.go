package main

import "github.com/JakeFAU/nomination-archive-crawler/cmd"

func main() {
	cmd.Execute()
}
