package cmd

import (
	"fmt"
	"io"
)

const banner = `
   ___                 ___      _       _
  / __|__ _ _ _ ___   | _ \___ (_)_ _  | |_
 | (__/ _` + "`" + ` | '_/ -_)  |  _/ _ \| | ' \ |  _|
  \___\__,_|_| \___|  |_| \___/|_|_||_| \__|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[36m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Patient session service - Version %s\x1b[0m\n\n", Version)
}
