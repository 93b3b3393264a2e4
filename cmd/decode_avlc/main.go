/* Parse and explain AVLC frames */
package main

import (
	vdl2 "github.com/doismellburning/husky/src"
)

func main() {
	vdl2.DecodeAVLCMain()
}
