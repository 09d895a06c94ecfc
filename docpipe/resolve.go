package docpipe

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxTreeDepth bounds the page-tree walk against cyclic Kids references.
const maxTreeDepth = 50

// pageResources returns the (possibly inherited) resource dictionary of the
// 1-based page nr, or nil when the page carries no resources.
func (d *Document) pageResources(nr int) (types.Dict, error) {
	catalog, err := d.pctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	rootObj, found := catalog.Find("Pages")
	if !found {
		return nil, fmt.Errorf("catalog has no page tree")
	}
	root, err := d.derefDict(rootObj)
	if err != nil {
		return nil, fmt.Errorf("page tree root: %w", err)
	}

	count := 0
	res, found, err := d.findPageResources(root, nil, nr, &count, 0)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("page %d not present in page tree", nr)
	}
	return res, nil
}

// findPageResources walks the page tree depth-first, tracking inherited
// Resources, until it reaches the target-th leaf.
func (d *Document) findPageResources(node, inherited types.Dict, target int, count *int, depth int) (types.Dict, bool, error) {
	if depth > maxTreeDepth {
		return nil, false, fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	if resObj, found := node.Find("Resources"); found {
		res, err := d.derefDict(resObj)
		if err == nil && res != nil {
			inherited = res
		}
	}

	typ := d.nodeType(node)
	switch typ {
	case "Pages":
		kidsObj, found := node.Find("Kids")
		if !found {
			return nil, false, nil
		}
		kids, err := d.derefArray(kidsObj)
		if err != nil {
			return nil, false, fmt.Errorf("kids: %w", err)
		}
		for _, kidObj := range kids {
			kid, err := d.derefDict(kidObj)
			if err != nil || kid == nil {
				continue
			}
			res, found, err := d.findPageResources(kid, inherited, target, count, depth+1)
			if err != nil || found {
				return res, found, err
			}
		}
		return nil, false, nil

	case "Page":
		*count++
		if *count == target {
			return inherited, true, nil
		}
		return nil, false, nil

	default:
		return nil, false, nil
	}
}

func (d *Document) nodeType(dict types.Dict) string {
	obj, found := dict.Find("Type")
	if !found {
		return ""
	}
	o, err := d.pctx.Dereference(obj)
	if err != nil {
		return ""
	}
	if name, ok := o.(types.Name); ok {
		return string(name)
	}
	return ""
}

// imageXObjects maps resource names to the image XObject streams reachable
// from the page's resource table. Stencil masks (ImageMask true) and
// soft-masked images are included; form XObjects are not.
func (d *Document) imageXObjects(nr int) (map[string]types.StreamDict, error) {
	res, err := d.pageResources(nr)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	xObj, found := res.Find("XObject")
	if !found {
		return nil, nil
	}
	xDict, err := d.derefDict(xObj)
	if err != nil || xDict == nil {
		return nil, err
	}

	images := make(map[string]types.StreamDict)
	for name, obj := range xDict {
		o, err := d.pctx.Dereference(obj)
		if err != nil {
			continue
		}
		sd, ok := o.(types.StreamDict)
		if !ok {
			continue
		}
		if sub, found := sd.Find("Subtype"); found {
			if n, isName := sub.(types.Name); isName && n == "Image" {
				images[name] = sd
			}
		}
	}
	return images, nil
}

func (d *Document) derefDict(obj types.Object) (types.Dict, error) {
	o, err := d.pctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	switch v := o.(type) {
	case types.Dict:
		return v, nil
	case types.StreamDict:
		return v.Dict, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected dict, got %T", o)
	}
}

func (d *Document) derefArray(obj types.Object) (types.Array, error) {
	o, err := d.pctx.Dereference(obj)
	if err != nil {
		return nil, err
	}
	if a, ok := o.(types.Array); ok {
		return a, nil
	}
	return nil, fmt.Errorf("expected array, got %T", o)
}

// derefInt resolves an integer entry of dict, returning fallback when absent.
func (d *Document) derefInt(dict types.Dict, key string, fallback int) int {
	obj, found := dict.Find(key)
	if !found {
		return fallback
	}
	o, err := d.pctx.Dereference(obj)
	if err != nil {
		return fallback
	}
	if i, ok := o.(types.Integer); ok {
		return int(i)
	}
	return fallback
}
