package facts_test

import (
	"context"
	"fmt"

	"github.com/openfroyo/jbossfacts/pkg/facts"
)

type hostnameCollector struct{}

func (hostnameCollector) Name() string { return "hostname" }

func (hostnameCollector) Collect(context.Context) ([]facts.Definition, error) {
	return []facts.Definition{facts.Static("hostname", "app01")}, nil
}

func ExampleGather() {
	set, err := facts.Gather(context.Background(), hostnameCollector{})
	if err != nil {
		panic(err)
	}

	for _, name := range set.Names() {
		v, _ := set.Value(name)
		fmt.Printf("%s => %s\n", name, v)
	}
	// Output:
	// hostname => app01
}
