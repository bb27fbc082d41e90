package ids

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

// Generator issues time-ordered unique int64 ids. They cross the wire as
// decimal strings so javascript clients never lose precision.
type Generator struct {
	node *snowflake.Node
}

func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Next() int64 {
	return int64(g.node.Generate())
}

func Format(id int64) string {
	return strconv.FormatInt(id, 10)
}

func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	return id, nil
}
