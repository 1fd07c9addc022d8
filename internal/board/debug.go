package board

// Debug enables diagnostic output from move generation: IsLegal prints
// each move it rejects together with the pieces attacking the king. Off
// by default. It is separate from engine.Debug, and the UCI front end
// toggles only that one.
var Debug = false
