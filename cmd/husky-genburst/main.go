/* AVLC frames to VDL Mode 2 burst file */
package main

import (
	vdl2 "github.com/doismellburning/husky/src"
)

func main() {
	vdl2.GenBurstMain()
}
