// Command portalctl runs operator tasks against the supplier portal:
// schema migrations, the stuck-invoice sweep, manual resync and ad hoc
// ERP queries.
package main

func main() {
	Execute()
}
