// Package bridge connects web views to native capabilities over a websocket.
//
// Each connection is one web view. Text frames holding a JSON object carry a
// typed message; any other text frame is the page's cookie string and is
// checked for the login cookie. Replies go to the asking view, picked images
// and reload instructions go to every view.
package bridge
