package service

import (
	"fmt"
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// linkFragment renders a shared link as the anchor card the front end
// styles. Description falls back to the URL itself.
func linkFragment(title, description, url string) string {
	desc := description
	if desc == "" {
		desc = url
	}
	fragment := fmt.Sprintf(`
		<a class="bbtalk-url" id="bbtalk-url" href="%s" title='%s' description='%s' rel="noopener noreferrer" target="_blank">
			<div class="bbtalk-url-info">
				<i class="fa-fw fa-solid fa-link"></i>
			</div>
			<div class="bbtalk-url-title">%s</div>
			<div class="bbtalk-url-desc">%s</div>
		</a>
	`, url, title, desc, title, desc)
	return strings.TrimSpace(spaceRun.ReplaceAllString(fragment, " "))
}

// locationFragment renders the container div plus the Leaflet script that
// mounts a Gaode map at the reported coordinates. The script travels in the
// note's auxiliary slot.
func locationFragment(scale, label, lon, lat string) (dom string, script string) {
	mapID := "gaodeMap-" + lon + "-" + lat
	dom = `<div class="map-box"><div id="` + mapID + `" style="max-width:100%; height:360px;display: block;margin:0 auto;z-index:1;border-radius: 5px;"></div></div>`

	var b strings.Builder
	b.WriteString("var normalm=L.tileLayer.chinaProvider('GaoDe.Normal.Map',{maxZoom:20,minZoom:1,attribution:'高德地图'});")
	b.WriteString("var imgm=L.tileLayer.chinaProvider('GaoDe.Satellite.Map',{maxZoom:20,minZoom:1,attribution:'高德地图'});")
	b.WriteString("var imga=L.tileLayer.chinaProvider('GaoDe.Satellite.Annotion',{maxZoom:20,minZoom:1,attribution:'高德地图'});")
	b.WriteString("var normal=L.layerGroup([normalm]),image=L.layerGroup([imgm,imga]);")
	b.WriteString(`var baseLayers={"高德地图":normal,"高德卫星地图":imgm,"高德卫星标注":image};`)
	fmt.Fprintf(&b, "var mymap=L.map('%s',{center:[%s,%s],zoom:%s,layers:[normal],zoomControl:false});", mapID, lat, lon, scale)
	b.WriteString("L.control.layers(baseLayers,null).addTo(mymap);L.control.zoom({zoomInTitle:'放大',zoomOutTitle:'缩小'}).addTo(mymap);")
	fmt.Fprintf(&b, "var marker = L.marker(['%s','%s']).addTo(mymap);", lat, lon)
	if label != "" {
		fmt.Fprintf(&b, `marker.bindPopup("%s").openPopup();`, label)
	}
	return dom, b.String()
}
