package poi

import "fmt"

const catalogSystemPrompt = `You extract tourist attractions from travel catalog pages.
Only use places that appear in the page text. Respond with JSON only.`

func getCatalogPrompt(region, pageText string, limit int) string {
	return fmt.Sprintf(`
List up to %d notable tourist attractions located in %s.
Use the catalog page text below as your source.

Return exactly this JSON structure:
{
  "places": [
    {
      "name": "English name of the attraction",
      "native_name": "Name in Korean as written on the page",
      "category": "Short category such as palace, museum, park, market"
    }
  ]
}

Catalog page text:
%s
`, limit, region, pageText)
}
