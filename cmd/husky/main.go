package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for "Husky", a VDL Mode 2 decoder:
 *
 *			Burst header FEC and Reed-Solomon correction.
 *			AVLC frame extraction and checking.
 *			ACARS, X.25, CLNP, ES-IS, COTP, IDRP and XID dissection.
 *			Text and JSON output to stdout, files and TCP clients.
 *
 *---------------------------------------------------------------*/

import (
	vdl2 "github.com/doismellburning/husky/src"
)

func main() {
	vdl2.HuskyMain()
}
