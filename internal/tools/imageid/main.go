// imageid prints the guest registry: every program's name, image id, content
// CID, and storage path.
package main

import (
	"fmt"
	"log"

	"github.com/shaorongqiang/bitcoin-block-verify/guests"
)

func main() {
	for _, e := range guests.Entries() {
		imageCID, err := e.ImageID.CID()
		if err != nil {
			log.Fatalf("cid for %s: %v", e.Name, err)
		}
		fmt.Printf("%s\n", e.Name)
		fmt.Printf("  image id: %s\n", e.ImageID)
		fmt.Printf("  cid:      %s\n", imageCID)
		fmt.Printf("  path:     %s\n", e.Path)
	}
}
