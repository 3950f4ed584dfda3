package main

import "github.com/cnmd-sb-git/aiproxy-sub001/cmd"

func main() {
	cmd.Execute()
}
