// Package codec implements the value codec used across the server function
// boundary.
//
// JSON cannot carry shared object identity, values that are not resolved yet,
// or error objects. The codec covers all three in both directions:
//
//   - Results travel server → client as a stream of JavaScript expression
//     statements (EncodeStream). The client evaluates each frame in order.
//   - Arguments travel client → server as a single JSON document with tagged
//     nodes (Decode). Arguments are never streamed.
//
// # Stream Frames
//
// Every stream is bound to a scope id. Frames are newline terminated:
//
//	($R["s1"]=[],{"user":$R["s1"][0]=$R.d()});   initial: open slot, root value
//	$R.r($R["s1"][0],{"name":"ada"});            data: resolve async slot 0
//	delete $R["s1"];                              terminal: close
//
// A failing stream ends with an error frame instead of the close frame:
//
//	$R.e("s1",Object.assign(new Error("boom"),{name:"Error"}));delete $R["s1"];
//
// The initial frame always comes first and exactly one terminal frame always
// comes last. A Registry tracks open scope ids so that a stream dropped
// before its terminal frame is detected and its slot released.
//
// # Argument Wire Format
//
// Plain JSON values decode as themselves. Objects carrying a "$t" key are
// tagged nodes:
//
//	{"$t":"undef"}                      undefined
//	{"$t":"num","v":"NaN"}              NaN, Infinity, -Infinity, -0
//	{"$t":"date","v":"2024-01-02T..."}  time.Time
//	{"$t":"bigint","v":"123"}           *big.Int
//	{"$t":"error","n":"TypeError","m":"..."}
//	{"$t":"bytes","v":"<base64>"}       []byte
//	{"$t":"map","v":[[k,v],...]}        Map
//	{"$t":"set","v":[...]}              Set
//	{"$t":"obj","i":1,"v":{...}}        object addressable by index 1
//	{"$t":"arr","i":2,"v":[...]}        array addressable by index 2
//	{"$t":"ref","i":1}                  the object with index 1
//
// Indexed containers and references reconstruct shared identity and cycles.
package codec
