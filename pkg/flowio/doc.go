// Package flowio reads and writes pipeline graphs in the canvas JSON format.
//
// # JSON Format
//
// The format mirrors what the editor canvas exchanges: a node list and an edge list,
// both in graph order.
//
//	{
//	  "nodes": [
//	    {
//	      "id": "Reader_1",
//	      "type": "Reader",
//	      "position": {"x": 0, "y": 0},
//	      "data": {"title": "customers", "source": {"id": "src-42", "name": "customers"}}
//	    },
//	    {
//	      "id": "Filter_1",
//	      "type": "Filter",
//	      "position": {"x": 250, "y": 0},
//	      "data": {"title": "adults", "params": {"condition": "age > 18"}}
//	    }
//	  ],
//	  "edges": [
//	    {"id": "eReader_1-Filter_1", "source": "Reader_1", "target": "Filter_1",
//	     "type": "smoothstep", "markerEnd": {"type": "arrowclosed"}}
//	  ]
//	}
//
// # Node Fields
//
// Required:
//   - id: "<Kind>_<n>"; the kind is derived from the prefix
//
// Optional:
//   - type: the kind again; when present it must agree with the id
//   - position: canvas coordinate, defaults to the origin
//   - data.title: display name, generated when empty
//   - data.source, data.destination, data.params: the kind's payload
//
// On output, data also carries the kind's icon and ports so the canvas can draw
// handles without a kind table of its own. Both are ignored on input.
//
// # Import
//
// [ReadJSON] rebuilds a graph as it was saved. Edges only need existing endpoints:
// cycles and duplicate edges written by an unguarded auto-connect load unchanged and
// are left to the validator and the orderer. Duplicate titles are accepted as well;
// decompiled graphs may contain them, and the pipeline runner warns about them.
package flowio
