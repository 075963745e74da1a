package main

import (
	"github.com/OpenCHAMI/pductl/cmd"
	buildinfo "github.com/OpenCHAMI/pductl/internal/version"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	buildinfo.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
