// syncctl inspects the entity registry the sync service would build and issues
// device tokens.
//
// Usage:
//
//	syncctl list --schema prisma/schema.prisma
//	syncctl show items
//	syncctl unresolved --source database
//	syncctl token --role terminal --username pdv-01 --subject 42
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
