package forward

import (
	"sort"

	"github.com/spaghettifunk/penumbra/engine/scene"
)

/**
 * @brief The mesh nodes sharing one material, in input order.
 */
type DrawGroup struct {
	Material *scene.Material
	Nodes    []*scene.MeshNode
}

/**
 * @brief The frame's mesh nodes bucketed and state sorted. Opaque holds
 * opaque and cutout materials, Transparent the alpha blended ones. Both are
 * sorted by material name, materials sharing a name keep the order they
 * first appear in, so the draw order only depends on the input order.
 */
type DrawList struct {
	Opaque      []DrawGroup
	Transparent []DrawGroup
}

// BuildDrawList groups nodes by material and buckets the groups.
func BuildDrawList(nodes []*scene.MeshNode) DrawList {
	groups := make(map[*scene.Material]*DrawGroup)
	var order []*DrawGroup
	for _, n := range nodes {
		if n.Material == nil || n.Mesh == nil {
			continue
		}
		g, ok := groups[n.Material]
		if !ok {
			g = &DrawGroup{Material: n.Material}
			groups[n.Material] = g
			order = append(order, g)
		}
		g.Nodes = append(g.Nodes, n)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Material.Name < order[j].Material.Name
	})

	var list DrawList
	for _, g := range order {
		if g.Material.IsTransparent() {
			list.Transparent = append(list.Transparent, *g)
		} else {
			list.Opaque = append(list.Opaque, *g)
		}
	}
	return list
}

// Materials returns every material of the list, opaque first.
func (l DrawList) Materials() []*scene.Material {
	materials := make([]*scene.Material, 0, len(l.Opaque)+len(l.Transparent))
	for _, g := range l.Opaque {
		materials = append(materials, g.Material)
	}
	for _, g := range l.Transparent {
		materials = append(materials, g.Material)
	}
	return materials
}
